/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains types describing PCM audio and functions for converting it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pcm provides types and functions for generating, converting and
// analysing pcm audio.
package pcm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// SampleFormat is the format that a PCM Buffer's samples can be in.
type SampleFormat int

// Used to represent an unknown format.
const (
	Unknown SampleFormat = -1
)

// Sample formats that we use.
const (
	S16_LE SampleFormat = iota
	S32_LE
)

// BufferFormat contains the format for a PCM Buffer.
type BufferFormat struct {
	SFormat  SampleFormat
	Rate     uint
	Channels uint
}

// Buffer contains a buffer of PCM data and the format that it is in.
type Buffer struct {
	Format BufferFormat
	Data   []byte
}

// DataSize takes audio attributes describing PCM audio data and returns the size of that data.
func DataSize(rate, channels, bitDepth uint, period float64) int {
	s := int(float64(channels) * float64(rate) * float64(bitDepth/8) * period)
	return s
}

// BitDepth returns the number of bits in a sample of format f, or 0 if f is unknown.
func (f SampleFormat) BitDepth() int {
	switch f {
	case S16_LE:
		return 16
	case S32_LE:
		return 32
	default:
		return 0
	}
}

// FrameSize returns the number of bytes in one frame of audio of format f.
func (f BufferFormat) FrameSize() int {
	return f.SFormat.BitDepth() / 8 * int(f.Channels)
}

// SFFromBitDepth returns the signed little endian sample format with the given bit depth.
func SFFromBitDepth(depth uint) (SampleFormat, error) {
	switch depth {
	case 16:
		return S16_LE, nil
	case 32:
		return S32_LE, nil
	default:
		return Unknown, errors.Errorf("unsupported bit depth (%d)", depth)
	}
}

// Ints returns the samples of b, interleaved as they are in b.Data.
func Ints(b Buffer) ([]int, error) {
	switch b.Format.SFormat {
	case S16_LE:
		if len(b.Data)%2 != 0 {
			return nil, errors.New("uneven number of bytes (not whole number of samples)")
		}
		s := make([]int, len(b.Data)/2)
		for i := range s {
			s[i] = int(int16(binary.LittleEndian.Uint16(b.Data[2*i:])))
		}
		return s, nil
	case S32_LE:
		if len(b.Data)%4 != 0 {
			return nil, errors.New("number of bytes not a whole number of samples")
		}
		s := make([]int, len(b.Data)/4)
		for i := range s {
			s[i] = int(int32(binary.LittleEndian.Uint32(b.Data[4*i:])))
		}
		return s, nil
	default:
		return nil, errors.Errorf("unhandled sample format %v", b.Format.SFormat)
	}
}

// Floats returns the samples of the first channel of b scaled to [-1, 1).
func Floats(b Buffer) ([]float64, error) {
	s, err := Ints(b)
	if err != nil {
		return nil, err
	}
	ch := int(b.Format.Channels)
	if ch < 1 {
		return nil, errors.Errorf("invalid number of channels %d", ch)
	}
	full := math.Exp2(float64(b.Format.SFormat.BitDepth() - 1))
	f := make([]float64, len(s)/ch)
	for i := range f {
		f[i] = float64(s[i*ch]) / full
	}
	return f, nil
}

// MonoToStereo returns stereo audio with the samples of mono Buffer c copied to both channels.
func MonoToStereo(c Buffer) (Buffer, error) {
	if c.Format.Channels == 2 {
		return c, nil
	}
	if c.Format.Channels != 1 {
		return Buffer{}, errors.Errorf("audio is not stereo or mono, it has %v channels", c.Format.Channels)
	}

	n := c.Format.SFormat.BitDepth() / 8
	if n == 0 {
		return Buffer{}, errors.Errorf("unhandled sample format %v", c.Format.SFormat)
	}

	stereo := make([]byte, 0, len(c.Data)*2)
	for i := 0; i+n <= len(c.Data); i += n {
		stereo = append(stereo, c.Data[i:i+n]...)
		stereo = append(stereo, c.Data[i:i+n]...)
	}

	return Buffer{
		Format: BufferFormat{
			Channels: 2,
			SFormat:  c.Format.SFormat,
			Rate:     c.Format.Rate,
		},
		Data: stereo,
	}, nil
}

// String returns the string representation of a SampleFormat.
func (f SampleFormat) String() string {
	switch f {
	case S16_LE:
		return "S16_LE"
	case S32_LE:
		return "S32_LE"
	default:
		return "Unknown"
	}
}

// SFFromString takes a string representing a sample format and returns the corresponding SampleFormat.
func SFFromString(s string) (SampleFormat, error) {
	switch s {
	case "S16_LE":
		return S16_LE, nil
	case "S32_LE":
		return S32_LE, nil
	default:
		return Unknown, errors.Errorf("unknown sample format (%s)", s)
	}
}
