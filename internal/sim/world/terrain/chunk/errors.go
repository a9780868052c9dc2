package chunk

import (
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("chunk: position out of bounds")

// BoundsError reports an access outside a grid. Extent is the grid side length.
type BoundsError struct {
	What   string
	X, Y   int
	Extent int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("chunk: %s (%d,%d) outside %dx%d", e.What, e.X, e.Y, e.Extent, e.Extent)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }
