package main

import (
	"log"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// cues plays short sine blips for movement feedback. A nil or disabled
// cues is silent.
type cues struct {
	enabled bool
}

func newCues(enabled bool, logger *log.Logger) *cues {
	if !enabled {
		return &cues{}
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		// Non-fatal, the viewer runs without sound.
		logger.Printf("audio init failed: %v", err)
		return &cues{}
	}
	return &cues{enabled: true}
}

func (c *cues) tone(freq float64, d time.Duration) {
	if c == nil || !c.enabled {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), sine))
}

func (c *cues) Step()    { c.tone(120, 15*time.Millisecond) }
func (c *cues) Bump()    { c.tone(60, 40*time.Millisecond) }
func (c *cues) Hurt()    { c.tone(440, 80*time.Millisecond) }
func (c *cues) Descend() { c.tone(90, 300*time.Millisecond) }

func (c *cues) Close() {
	if c != nil && c.enabled {
		speaker.Close()
	}
}
