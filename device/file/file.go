/*
NAME
  file.go

DESCRIPTION
  file.go provides an implementation of the AudioOutput interface writing
  WAV files.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package file provides an implementation of AudioOutput for WAV files.
package file

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ausocean/sstv/codec/pcm"
	"github.com/ausocean/sstv/codec/wav"
	"github.com/ausocean/sstv/device"
	"github.com/ausocean/sstv/transmit/config"
	"github.com/ausocean/utils/logging"
)

const (
	defaultSampleRate = 48000
	defaultBitDepth   = 16
)

// Configuration field errors.
var (
	errNoPath            = errors.New("no output path")
	errInvalidSampleRate = errors.New("invalid sample rate, defaulting")
	errInvalidBitDepth   = errors.New("invalid bitdepth, defaulting")
)

// WAVFile is an implementation of the AudioOutput interface writing mono
// audio to a WAV file.
type WAVFile struct {
	w      *wav.Writer
	path   string
	format pcm.BufferFormat
	title  string
	log    logging.Logger
	set    bool
	mu     sync.Mutex
}

// New returns a new WAVFile.
func New(l logging.Logger) *WAVFile { return &WAVFile{log: l} }

// Name returns the name of the device.
func (m *WAVFile) Name() string {
	return "File"
}

// Set configures the file from the OutputPath, SampleRate and BitDepth fields
// of c.
func (m *WAVFile) Set(c config.Config) error {
	if c.OutputPath == "" {
		return errNoPath
	}
	var errs device.MultiError
	if c.SampleRate == 0 {
		errs = append(errs, errInvalidSampleRate)
		c.SampleRate = defaultSampleRate
	}
	sf, err := pcm.SFFromBitDepth(c.BitDepth)
	if err != nil {
		errs = append(errs, errInvalidBitDepth)
		sf = pcm.S16_LE
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = c.OutputPath
	m.format = pcm.BufferFormat{SFormat: sf, Rate: c.SampleRate, Channels: 1}
	m.title = c.Mode
	m.set = true
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Start creates the file at the configured path.
func (m *WAVFile) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return errors.New("WAVFile has not been set with config")
	}
	if m.w != nil {
		return nil
	}
	var err error
	m.w, err = wav.Create(m.path, wav.Metadata{
		AudioFormat: wav.PCMFormat,
		Channels:    int(m.format.Channels),
		SampleRate:  int(m.format.Rate),
		BitDepth:    m.format.SFormat.BitDepth(),
		Title:       m.title,
	})
	if err != nil {
		return fmt.Errorf("could not create WAV file: %w", err)
	}
	m.log.Debug("WAV file created", "path", m.path)
	return nil
}

// Stop completes and closes the file.
func (m *WAVFile) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return nil
	}
	err := m.w.Close()
	m.w = nil
	return err
}

// Write implements io.Writer. If Start has not been called, or Start has been
// called and Stop has since been called, an error is returned.
func (m *WAVFile) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return 0, errors.New("WAV file is closed, WAVFile not started")
	}
	return m.w.Write(p)
}

// IsRunning is used to determine if the WAVFile device is running.
func (m *WAVFile) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.w != nil
}

// Format returns the format of audio accepted by Write.
func (m *WAVFile) Format() pcm.BufferFormat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.format
}
