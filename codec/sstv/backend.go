/*
NAME
  backend.go

DESCRIPTION
  backend.go provides the transmission backends on which tones are realised:
  a radio transmitting in direct mode, where each tone shifts the carrier,
  and an audio tone generator driving a sub-carrier.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sstv

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Clock provides the time base against which tones are held.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// WaitUntil blocks until d has elapsed since start.
	WaitUntil(start time.Time, d time.Duration)
}

// Radio is a transceiver able to transmit an unmodulated carrier whose
// frequency is set in units of its synthesiser step.
type Radio interface {
	StartDirect() error
	TransmitDirect(frf uint32) error
	Standby() error
	FrequencyStep() float64
}

// ToneGenerator produces audio tones for an external transmitter.
type ToneGenerator interface {
	Start() error
	Tone(freq float64, continuous bool) error
	Stop() error
}

// Backend realises tones. Assert starts a tone and returns immediately, the
// caller holds the tone by waiting on the backend's Clock.
type Backend interface {
	Clock

	// Begin prepares the backend for transmission at the given base frequency
	// in Hz. Audio backends ignore the base frequency.
	Begin(base float64) error

	// Assert sets the tone frequency offset in Hz.
	Assert(freq float64, continuous bool) error

	// Stop ends transmission.
	Stop() error

	// Audio returns true if tones are produced on an audio sub-carrier.
	Audio() bool
}

var errNoStep = errors.New("radio has no frequency step")

// DirectBackend transmits tones by shifting a radio's carrier.
type DirectBackend struct {
	Clock
	radio Radio
	step  float64
	base  uint32 // Base frequency in synthesiser steps.
}

// NewDirect returns a DirectBackend for r timed by c.
func NewDirect(r Radio, c Clock) *DirectBackend {
	return &DirectBackend{Clock: c, radio: r}
}

// Begin computes the base frequency register value and puts the radio in
// direct mode.
func (b *DirectBackend) Begin(base float64) error {
	b.step = b.radio.FrequencyStep()
	if b.step <= 0 {
		return errNoStep
	}
	if base <= 0 {
		return fmt.Errorf("invalid base frequency: %v", base)
	}
	b.base = uint32(math.Round(base / b.step))
	return b.radio.StartDirect()
}

// Assert transmits the carrier offset from the base frequency by freq.
func (b *DirectBackend) Assert(freq float64, continuous bool) error {
	return b.radio.TransmitDirect(b.base + uint32(math.Round(freq/b.step)))
}

// Stop returns the radio to standby.
func (b *DirectBackend) Stop() error { return b.radio.Standby() }

// Audio returns false.
func (b *DirectBackend) Audio() bool { return false }

// AudioBackend produces tones with a tone generator.
type AudioBackend struct {
	Clock
	gen ToneGenerator
}

// NewAudio returns an AudioBackend for g timed by c.
func NewAudio(g ToneGenerator, c Clock) *AudioBackend {
	return &AudioBackend{Clock: c, gen: g}
}

// Begin starts the tone generator.
func (b *AudioBackend) Begin(base float64) error { return b.gen.Start() }

// Assert sets the generator frequency.
func (b *AudioBackend) Assert(freq float64, continuous bool) error {
	return b.gen.Tone(freq, continuous)
}

// Stop stops the tone generator.
func (b *AudioBackend) Stop() error { return b.gen.Stop() }

// Audio returns true.
func (b *AudioBackend) Audio() bool { return true }

const defaultSpin = 2 * time.Millisecond

// MonotonicClock waits on the system monotonic clock. It sleeps until Spin
// before the deadline and busy waits for the remainder, since scheduler wake
// up latency is well above the length of a single pixel.
type MonotonicClock struct {
	Spin time.Duration
}

// Now returns time.Now.
func (MonotonicClock) Now() time.Time { return time.Now() }

// WaitUntil blocks until d after start.
func (c MonotonicClock) WaitUntil(start time.Time, d time.Duration) {
	deadline := start.Add(d)
	spin := c.Spin
	if spin <= 0 {
		spin = defaultSpin
	}
	if r := time.Until(deadline) - spin; r > 0 {
		time.Sleep(r)
	}
	for time.Now().Before(deadline) {
	}
}
