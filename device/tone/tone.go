/*
NAME
  tone.go

DESCRIPTION
  tone.go provides Generator, which renders SSTV tones as PCM audio to an
  AudioOutput and keeps time by counting rendered samples.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tone provides an audio tone generator for SSTV transmission through
// an external transmitter.
package tone

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ausocean/sstv/codec/pcm"
	"github.com/ausocean/sstv/device"
	"github.com/ausocean/utils/logging"
)

const pkg = "tone: "

const (
	defaultAmplitude = 0.5
	maxFrames        = 4096                  // Largest write to the output.
	idleChunk        = 20 * time.Millisecond // Audio rendered per step of a continuous tone.
)

var errNotStarted = errors.New("generator not started")

// Generator renders tones to an AudioOutput. It implements sstv.ToneGenerator
// and sstv.Clock; its time advances only as audio is rendered, so tone
// lengths are exact to a sample regardless of scheduling. Outputs that play
// in real time pace the generator by blocking on Write.
type Generator struct {
	log       logging.Logger
	out       device.AudioOutput
	amplitude float64
	keyer     device.Keyer
	pttDelay  time.Duration

	mu      sync.Mutex
	osc     *pcm.Oscillator
	rate    float64
	epoch   time.Time
	cursor  time.Duration // Time since epoch reached by WaitUntil.
	frames  int64         // Frames rendered since epoch.
	buf     []byte
	err     error // First output error since Start.
	running bool

	idleStop chan struct{}
	idleDone chan struct{}
}

// Option configures a Generator.
type Option func(*Generator) error

// WithAmplitude sets the peak amplitude as a fraction of full scale.
func WithAmplitude(a float64) Option {
	return func(g *Generator) error {
		if a <= 0 || a > 1 {
			return fmt.Errorf("amplitude %v out of range (0, 1]", a)
		}
		g.amplitude = a
		return nil
	}
}

// WithKeyer has the generator key k when started and unkey it when stopped.
// Audio starts delay after keying.
func WithKeyer(k device.Keyer, delay time.Duration) Option {
	return func(g *Generator) error {
		if k == nil {
			return errors.New("nil keyer")
		}
		g.keyer, g.pttDelay = k, delay
		return nil
	}
}

// New returns a Generator writing to out.
func New(out device.AudioOutput, l logging.Logger, options ...Option) (*Generator, error) {
	if out == nil {
		return nil, errors.New("nil output")
	}
	g := &Generator{log: l, out: out, amplitude: defaultAmplitude}
	for i, option := range options {
		err := option(g)
		if err != nil {
			return nil, fmt.Errorf("could not apply option no. %d: %w", i, err)
		}
	}
	return g, nil
}

// Start starts the output and keys the transmitter. Starting a running
// generator has no effect, and a continuous tone is held until the next Tone.
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}
	err := g.out.Start()
	if err != nil {
		return fmt.Errorf("could not start output: %w", err)
	}

	// Outputs may only settle their format once started.
	g.osc, err = pcm.NewOscillator(g.out.Format(), g.amplitude)
	if err != nil {
		g.out.Stop()
		return fmt.Errorf("could not create oscillator: %w", err)
	}

	if g.keyer != nil {
		err = g.keyer.Key(true)
		if err != nil {
			g.out.Stop()
			return fmt.Errorf("could not key transmitter: %w", err)
		}
		time.Sleep(g.pttDelay)
	}

	g.rate = float64(g.osc.Format().Rate)
	g.epoch = time.Now()
	g.cursor, g.frames = 0, 0
	g.err = nil
	g.running = true
	g.log.Debug(pkg+"generator started", "output", g.out.Name(), "rate", g.rate)
	return nil
}

// Tone sets the frequency of subsequently rendered audio. A continuous tone is
// rendered in the background until the next call to Tone, Now or Stop. Tone
// returns any output error since Start.
func (g *Generator) Tone(freq float64, continuous bool) error {
	g.endIdle()
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return errNotStarted
	}
	if g.err != nil {
		return g.err
	}
	g.osc.SetFrequency(freq)
	if continuous {
		stop, done := make(chan struct{}), make(chan struct{})
		g.idleStop, g.idleDone = stop, done
		go g.idle(stop, done)
	}
	return nil
}

// Now returns the time reached by the rendered audio. A continuous tone is
// ended first so that it does not run on past the time observed.
func (g *Generator) Now() time.Time {
	g.endIdle()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epoch.Add(g.cursor)
}

// WaitUntil renders the current tone until d after start.
func (g *Generator) WaitUntil(start time.Time, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running || g.err != nil {
		return
	}
	t := start.Add(d).Sub(g.epoch)
	if t <= g.cursor {
		return
	}
	g.cursor = t
	g.render(int64(math.Round(t.Seconds()*g.rate)) - g.frames)
}

// Err returns the first output error since Start.
func (g *Generator) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Stop ends any continuous tone, stops the output and unkeys the
// transmitter. Any output error since Start is returned.
func (g *Generator) Stop() error {
	g.endIdle()
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return nil
	}
	g.running = false

	var errs device.MultiError
	if g.err != nil {
		errs = append(errs, g.err)
	}
	err := g.out.Stop()
	if err != nil {
		errs = append(errs, fmt.Errorf("could not stop output: %w", err))
	}
	if g.keyer != nil {
		err = g.keyer.Key(false)
		if err != nil {
			errs = append(errs, fmt.Errorf("could not unkey transmitter: %w", err))
		}
	}
	g.log.Debug(pkg+"generator stopped", "frames", g.frames)
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// render writes n frames of the current tone. g.mu must be held.
func (g *Generator) render(n int64) {
	for n > 0 {
		f := n
		if f > maxFrames {
			f = maxFrames
		}
		g.buf = g.osc.Append(g.buf[:0], int(f))
		_, err := g.out.Write(g.buf)
		if err != nil {
			g.err = fmt.Errorf("could not write audio: %w", err)
			g.log.Error(pkg+"output write failed", "error", err.Error())
			return
		}
		g.frames += f
		n -= f
	}
}

// idle renders the current tone a chunk at a time, staying no more than a
// chunk ahead of real time, until stop is closed.
func (g *Generator) idle(stop, done chan struct{}) {
	defer close(done)
	start := time.Now()
	n := int64(math.Round(idleChunk.Seconds() * g.rate))
	var held time.Duration
	for {
		select {
		case <-stop:
			return
		default:
		}

		g.mu.Lock()
		g.render(n)
		end := time.Duration(math.Round(float64(g.frames) / g.rate * float64(time.Second)))
		if end > g.cursor {
			g.cursor = end
		}
		err := g.err
		g.mu.Unlock()
		if err != nil {
			return
		}

		held += idleChunk
		select {
		case <-stop:
			return
		case <-time.After(time.Until(start.Add(held - idleChunk))):
		}
	}
}

func (g *Generator) endIdle() {
	g.mu.Lock()
	stop, done := g.idleStop, g.idleDone
	g.idleStop, g.idleDone = nil, nil
	g.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
