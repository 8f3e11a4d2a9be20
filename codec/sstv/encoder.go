/*
NAME
  encoder.go

DESCRIPTION
  encoder.go provides Encoder, which sends SSTV pictures as a timed sequence
  of tones on a Backend.

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
	"time"

	"github.com/ausocean/utils/logging"
)

const pkg = "sstv: "

// ErrWrongBackend is returned by BeginAudio when the encoder's backend does
// not produce audio tones.
var ErrWrongBackend = errors.New("backend is not an audio backend")

// Chroma history indices.
const (
	ry = iota
	by
)

// Encoder sends pictures one line at a time. An Encoder owns its Backend and
// is not safe for concurrent use.
type Encoder struct {
	backend    Backend
	log        logging.Logger
	base       Mode    // Mode as bound by Begin.
	mode       Mode    // base scaled by correction.
	baseFreq   float64 // Base frequency in Hz.
	correction float64
	odd        bool // Parity of the next line.

	averaging bool
	history   [2][]float64 // Raw chroma values of the last line sent on each channel.
	seen      [2]bool      // Whether history holds a line sent since the last header.
	scratch   []float64
}

// Option configures an Encoder.
type Option func(*Encoder) error

// WithChromaAveraging has the encoder send each chroma value as the mean of
// the pixel's value and the value sent for the same pixel on the previous
// line carrying that channel.
func WithChromaAveraging() Option {
	return func(e *Encoder) error {
		e.averaging = true
		return nil
	}
}

// New returns an Encoder sending on b.
func New(b Backend, l logging.Logger, options ...Option) (*Encoder, error) {
	if b == nil {
		return nil, errors.New("nil backend")
	}
	e := &Encoder{backend: b, log: l, correction: 1}
	for i, option := range options {
		err := option(e)
		if err != nil {
			return nil, fmt.Errorf("could not apply option no. %d: %w", i, err)
		}
	}
	return e, nil
}

// Begin binds m to the encoder and prepares the backend for transmission at
// base Hz. Any previous correction is discarded.
func (e *Encoder) Begin(base float64, m Mode) error {
	if m.VIS == 0 {
		return ErrNoMode
	}
	err := e.backend.Begin(base)
	if err != nil {
		return fmt.Errorf("could not begin backend: %w", err)
	}
	e.base, e.mode = m, m
	e.baseFreq = base
	e.correction = 1
	e.reset()
	e.log.Info(pkg+"encoder ready", "mode", m.Name, "base", base, "audio", e.backend.Audio())
	return nil
}

// BeginAudio binds m to an encoder whose backend produces audio tones.
func (e *Encoder) BeginAudio(m Mode) error {
	if !e.backend.Audio() {
		return ErrWrongBackend
	}
	return e.Begin(0, m)
}

// SetCorrection scales all tone durations by f. The scale is always applied
// to the mode as bound by Begin so repeated calls do not compound.
func (e *Encoder) SetCorrection(f float64) error {
	m, err := e.base.Scaled(f)
	if err != nil {
		return err
	}
	e.mode = m
	e.correction = f
	e.log.Debug(pkg+"correction set", "factor", f)
	return nil
}

// Correction returns the current correction factor.
func (e *Encoder) Correction() float64 { return e.correction }

// Mode returns the bound mode with correction applied.
func (e *Encoder) Mode() Mode { return e.mode }

// PictureHeight returns the number of lines in a picture of the bound mode.
func (e *Encoder) PictureHeight() int { return e.mode.Height }

// SendHeader sends the calibration header and VIS code starting a new picture.
// The next line sent is even.
func (e *Encoder) SendHeader() error {
	if e.mode.VIS == 0 {
		return ErrNoMode
	}
	e.reset()
	for _, t := range HeaderTones(e.mode.VIS) {
		err := e.tone(t.Freq, scale(t.Duration, e.correction))
		if err != nil {
			return fmt.Errorf("could not send header: %w", err)
		}
	}
	return nil
}

// SendLine sends one line of the picture. line must hold at least as many
// pixels as the mode's width. If the backend fails the line is abandoned and
// its parity is kept, so the caller may resend it.
func (e *Encoder) SendLine(line []Pixel) error {
	if e.mode.VIS == 0 {
		return ErrNoMode
	}
	p := parityIndex(e.odd)
	for _, s := range e.mode.slots {
		t := s[p]
		if !t.Kind.IsScan() {
			err := e.tone(t.Freq, t.Duration)
			if err != nil {
				return err
			}
			continue
		}
		err := e.scan(t, line)
		if err != nil {
			return err
		}
	}
	if e.mode.Alternates() {
		e.odd = !e.odd
	}
	return nil
}

// scan sends one tone per pixel for scan tone t.
func (e *Encoder) scan(t Tone, line []Pixel) error {
	d := e.mode.PixelDuration(t)
	ch := -1
	switch t.Kind {
	case ScanChromaRY:
		ch = ry
	case ScanChromaBY:
		ch = by
	}
	if ch < 0 || !e.averaging {
		for j := 0; j < e.mode.Width; j++ {
			err := e.tone(Frequency(channel(t.Kind, line[j])), d)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if len(e.scratch) != e.mode.Width {
		e.scratch = make([]float64, e.mode.Width)
	}
	for j := range e.scratch {
		e.scratch[j] = channel(t.Kind, line[j])
	}
	prev := e.history[ch]
	for j, v := range e.scratch {
		if e.seen[ch] {
			v = (v + prev[j]) / 2
		}
		err := e.tone(Frequency(v), d)
		if err != nil {
			return err
		}
	}
	e.history[ch], e.scratch = e.scratch, prev
	e.seen[ch] = true
	return nil
}

// Idle holds the leader tone until the next tone or Stop.
func (e *Encoder) Idle() error {
	return e.backend.Assert(LeaderFreq, true)
}

// Stop ends transmission on the backend.
func (e *Encoder) Stop() error {
	return e.backend.Stop()
}

// tone asserts freq and blocks until d has elapsed.
func (e *Encoder) tone(freq float64, d time.Duration) error {
	start := e.backend.Now()
	err := e.backend.Assert(freq, false)
	if err != nil {
		return err
	}
	e.backend.WaitUntil(start, d)
	return nil
}

func (e *Encoder) reset() {
	e.odd = false
	e.seen = [2]bool{}
}
