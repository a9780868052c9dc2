package chunk

// NewPlaceholder builds an open, fully generated chunk used when real
// generation cannot run (unknown level, generator failure).
func NewPlaceholder(key Key, corruption float64) *Chunk {
	c := New(key, corruption)
	c.Placeholder = true
	for i := range c.subs {
		s := &c.subs[i]
		for j := range s.layers[LayerBase] {
			s.layers[LayerBase][j] = Floor
			s.layers[LayerCeiling][j] = Ceiling
		}
		s.generated = true
	}
	return c
}
