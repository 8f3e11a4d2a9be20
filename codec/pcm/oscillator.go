/*
NAME
  oscillator.go

DESCRIPTION
  oscillator.go provides a phase continuous sine oscillator producing PCM audio.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Oscillator generates a sine wave whose frequency may change between calls
// to Append without discontinuity in phase.
type Oscillator struct {
	format BufferFormat
	amp    float64 // Peak sample value.
	freq   float64
	phase  float64 // Radians, in [0, 2π).
}

// NewOscillator returns an Oscillator producing audio in format f with the
// given amplitude as a fraction of full scale.
func NewOscillator(f BufferFormat, amplitude float64) (*Oscillator, error) {
	if f.Rate == 0 {
		return nil, errors.New("sample rate must be non-zero")
	}
	if f.Channels == 0 {
		return nil, errors.New("channels must be non-zero")
	}
	depth := f.SFormat.BitDepth()
	if depth == 0 {
		return nil, errors.Errorf("unhandled sample format %v", f.SFormat)
	}
	if amplitude <= 0 || amplitude > 1 {
		return nil, errors.Errorf("amplitude %v out of range (0, 1]", amplitude)
	}
	return &Oscillator{
		format: f,
		amp:    amplitude * (math.Exp2(float64(depth-1)) - 1),
	}, nil
}

// Format returns the format of the generated audio.
func (o *Oscillator) Format() BufferFormat { return o.format }

// SetFrequency sets the frequency in Hz of subsequently generated samples.
func (o *Oscillator) SetFrequency(f float64) { o.freq = f }

// Frequency returns the current frequency.
func (o *Oscillator) Frequency() float64 { return o.freq }

// Append appends n frames of the tone to dst and returns the extended slice.
// Every channel of a frame holds the same sample.
func (o *Oscillator) Append(dst []byte, n int) []byte {
	step := 2 * math.Pi * o.freq / float64(o.format.Rate)
	var b [4]byte
	for i := 0; i < n; i++ {
		v := o.amp * math.Sin(o.phase)
		var s []byte
		switch o.format.SFormat {
		case S16_LE:
			binary.LittleEndian.PutUint16(b[:], uint16(int16(math.Round(v))))
			s = b[:2]
		case S32_LE:
			binary.LittleEndian.PutUint32(b[:], uint32(int32(math.Round(v))))
			s = b[:4]
		}
		for c := uint(0); c < o.format.Channels; c++ {
			dst = append(dst, s...)
		}
		o.phase = math.Mod(o.phase+step, 2*math.Pi)
	}
	return dst
}

// Reset sets the phase to zero.
func (o *Oscillator) Reset() { o.phase = 0 }
