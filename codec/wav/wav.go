/*
NAME
  wav.go

DESCRIPTION
  wav.go provides a Writer encoding PCM audio to WAV files.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wav provides encoding of pcm audio to wav.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ausocean/sstv/codec/pcm"
)

const PCMFormat = 1 // PCMFormat defines the value for pcm audio as defined by the wav std.

var (
	errInvalidFormat   = errors.New("invalid or no format defined")
	errInvalidRate     = errors.New("invalid or no sample rate defined")
	errInvalidChannels = errors.New("invalid or no number of channels defined")
	errInvalidBitDepth = errors.New("invalid or no bit depth defined")
	errClosed          = errors.New("writer is closed")
)

// Metadata defines the format of the audio written to the file.
type Metadata struct {
	AudioFormat int
	Channels    int
	SampleRate  int
	BitDepth    int

	// Optional descriptive fields, written in an INFO chunk when set.
	Title    string
	Comments string
}

func (m Metadata) validate() error {
	switch {
	case m.AudioFormat != PCMFormat:
		return errInvalidFormat
	case m.Channels <= 0:
		return errInvalidChannels
	case m.SampleRate <= 0:
		return errInvalidRate
	case m.BitDepth != 16 && m.BitDepth != 32:
		return errInvalidBitDepth
	}
	return nil
}

// Writer encodes little endian signed PCM written to it as WAV.
type Writer struct {
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	format pcm.BufferFormat
	closer io.Closer // Closed after the encoder, if non-nil.
	part   []byte    // Trailing bytes of an incomplete frame.
	wrote  bool      // Whether the header has been written.
}

// NewWriter returns a Writer encoding to ws. The header is completed when
// the Writer is closed, ws itself is not closed.
func NewWriter(ws io.WriteSeeker, md Metadata) (*Writer, error) {
	err := md.validate()
	if err != nil {
		return nil, err
	}
	sf, err := pcm.SFFromBitDepth(uint(md.BitDepth))
	if err != nil {
		return nil, err
	}
	enc := wav.NewEncoder(ws, md.SampleRate, md.BitDepth, md.Channels, md.AudioFormat)
	if md.Title != "" || md.Comments != "" {
		enc.Metadata = &wav.Metadata{Title: md.Title, Comments: md.Comments, Software: "sstvtx"}
	}
	return &Writer{
		enc: enc,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: md.Channels, SampleRate: md.SampleRate},
			SourceBitDepth: md.BitDepth,
		},
		format: pcm.BufferFormat{SFormat: sf, Rate: uint(md.SampleRate), Channels: uint(md.Channels)},
	}, nil
}

// Create creates the named file and returns a Writer encoding to it.
// Closing the Writer closes the file.
func Create(name string, md Metadata) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, md)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Format returns the PCM format expected by Write.
func (w *Writer) Format() pcm.BufferFormat { return w.format }

// Write encodes p, which holds PCM in the Writer's format. Bytes not making
// up a whole frame are held until the next call.
func (w *Writer) Write(p []byte) (int, error) {
	if w.enc == nil {
		return 0, errClosed
	}
	data := append(w.part, p...)
	fs := w.format.FrameSize()
	whole := len(data) - len(data)%fs
	s, err := pcm.Ints(pcm.Buffer{Format: w.format, Data: data[:whole]})
	if err != nil {
		return 0, err
	}
	w.part = append(w.part[:0:0], data[whole:]...)
	if len(s) == 0 {
		return len(p), nil
	}
	w.buf.Data = s
	err = w.enc.Write(w.buf)
	if err != nil {
		return 0, fmt.Errorf("could not encode samples: %w", err)
	}
	w.wrote = true
	return len(p), nil
}

// Close completes the WAV header. Trailing bytes of an incomplete frame are dropped.
func (w *Writer) Close() error {
	if w.enc == nil {
		return errClosed
	}
	var err error
	if !w.wrote {
		w.buf.Data = nil
		err = w.enc.Write(w.buf)
	}
	if err == nil {
		err = w.enc.Close()
	}
	w.enc = nil
	if w.closer != nil {
		cerr := w.closer.Close()
		if err == nil {
			err = cerr
		}
	}
	return err
}
