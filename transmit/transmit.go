/*
NAME
  transmit.go

DESCRIPTION
  transmit.go provides Transmitter, which sends whole pictures over SSTV on
  the backend described by a config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package transmit provides an API for transmitting pictures over SSTV.
package transmit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/ausocean/sstv/codec/sstv"
	"github.com/ausocean/sstv/transmit/config"
)

var (
	errClosed   = errors.New("transmitter closed")
	errNotReady = errors.New("transmitter not set up, update config to retry")
)

// Transmitter sends pictures one at a time. Its methods are safe for
// concurrent use; sends are serialised.
type Transmitter struct {
	cfg config.Config

	mu      sync.Mutex
	backend *timedBackend
	enc     *sstv.Encoder
	closers []io.Closer // Devices owned by the transmitter.
	owned   bool        // Whether the backend was built from the config.
	closed  bool
}

// New returns a Transmitter using the backend and devices described by c.
func New(c config.Config) (*Transmitter, error) {
	t := &Transmitter{owned: true}
	err := t.setConfig(c)
	if err != nil {
		return nil, err
	}
	err = t.setup()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithBackend returns a Transmitter sending on b. The backend settings of
// c are ignored.
func NewWithBackend(c config.Config, b sstv.Backend) (*Transmitter, error) {
	t := &Transmitter{}
	err := t.setConfig(c)
	if err != nil {
		return nil, err
	}
	err = t.init(b, nil)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Config returns a copy of the transmitter's config.
func (t *Transmitter) Config() config.Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

func (t *Transmitter) setConfig(c config.Config) error {
	if c.Logger == nil {
		return errors.New("no logger in config")
	}
	c.Validate()
	if c.Idle && c.Backend == config.BackendAudio && c.Output == config.OutputFile {
		c.Logger.Warning("idle tone not supported for file output, disabling")
		c.Idle = false
	}
	t.cfg = c
	return nil
}

func (t *Transmitter) setup() error {
	t.cfg.Logger.Debug("setting up backend")
	b, closers, err := t.setupBackend()
	if err != nil {
		return fmt.Errorf("could not set up backend: %w", err)
	}
	err = t.init(b, closers)
	if err != nil {
		closeAll(closers)
		return err
	}
	t.cfg.Logger.Info("backend set up", "audio", b.Audio())
	return nil
}

func (t *Transmitter) init(b sstv.Backend, closers []io.Closer) error {
	var options []sstv.Option
	if t.cfg.ChromaAveraging {
		options = append(options, sstv.WithChromaAveraging())
	}
	tb := &timedBackend{Backend: b}
	enc, err := sstv.New(tb, t.cfg.Logger, options...)
	if err != nil {
		return fmt.Errorf("could not create encoder: %w", err)
	}
	t.backend, t.enc, t.closers = tb, enc, closers
	return nil
}

// Send transmits img, scaled to the picture size of the configured mode.
// The context is checked between lines; if it is cancelled transmission
// stops and the context's error is returned.
func (t *Transmitter) Send(ctx context.Context, img image.Image) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.ready()
	if err != nil {
		return err
	}

	m, err := sstv.ModeByName(t.cfg.Mode)
	if err != nil {
		return err
	}
	lines := Lines(img, m)

	err = t.begin(m)
	if err != nil {
		return err
	}
	t.backend.reset()
	start := time.Now()

	err = t.enc.SendHeader()
	if err != nil {
		return t.abort(err)
	}
	for i, l := range lines {
		select {
		case <-ctx.Done():
			return t.abort(ctx.Err())
		default:
		}
		err = t.enc.SendLine(l)
		if err != nil {
			return t.abort(fmt.Errorf("could not send line %d: %w", i, err))
		}
	}

	if t.cfg.Idle {
		err = t.enc.Idle()
	} else {
		err = t.enc.Stop()
	}
	if err != nil {
		return t.abort(err)
	}

	d := time.Since(start)
	picturesSent.WithLabelValues(m.Name).Inc()
	pictureDuration.WithLabelValues(m.Name).Observe(d.Seconds())
	tm := t.backend.timing()
	tm.observe()
	t.cfg.Logger.Info("picture sent",
		"mode", m.Name,
		"duration", d.String(),
		"tones", tm.Tones,
		"lateMean", tm.Mean,
		"lateStdDev", tm.StdDev,
		"lateP99", tm.P99,
		"lateMax", tm.Max,
	)
	return nil
}

// SendFile decodes the image at path and sends it.
func (t *Transmitter) SendFile(ctx context.Context, path string) error {
	img, err := DecodeFile(path)
	if err != nil {
		return err
	}
	t.cfg.Logger.Debug("sending image file", "path", path)
	return t.Send(ctx, img)
}

// TestPattern sends colour bars.
func (t *Transmitter) TestPattern(ctx context.Context) error {
	m, err := sstv.ModeByName(t.Config().Mode)
	if err != nil {
		return err
	}
	return t.Send(ctx, ColourBars(m.Width, m.Height))
}

// begin binds m to the encoder and applies the configured correction.
func (t *Transmitter) begin(m sstv.Mode) error {
	var err error
	if t.backend.Audio() {
		err = t.enc.BeginAudio(m)
	} else {
		err = t.enc.Begin(t.cfg.BaseFrequency*1e6, m)
	}
	if err != nil {
		return fmt.Errorf("could not begin transmission: %w", err)
	}
	if t.cfg.Correction != 1 {
		err = t.enc.SetCorrection(t.cfg.Correction)
		if err != nil {
			return fmt.Errorf("could not set correction: %w", err)
		}
	}
	return nil
}

// abort stops transmission after err.
func (t *Transmitter) abort(err error) error {
	pictureErrors.Inc()
	serr := t.enc.Stop()
	if serr != nil {
		t.cfg.Logger.Error("could not stop after failed picture", "error", serr.Error())
	}
	return err
}

// Update takes a map of variables and their values and edits the current
// config if the variables are recognised as valid parameters. Devices are
// rebuilt for the new config. If they cannot be, sends fail until a later
// Update succeeds.
func (t *Transmitter) Update(vars map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errClosed
	}

	t.cfg.Logger.Debug("checking vars", "vars", vars)
	c := t.cfg
	c.Update(vars)
	b := t.backend.Backend

	if t.enc != nil {
		err := t.release()
		if err != nil {
			t.cfg.Logger.Warning("could not release devices", "error", err.Error())
		}
	}
	err := t.setConfig(c)
	if err != nil {
		return err
	}
	if t.owned {
		err = t.setup()
	} else {
		err = t.init(b, nil)
	}
	if err != nil {
		return fmt.Errorf("could not set up after update: %w", err)
	}
	t.cfg.Logger.Info("finished reconfig")
	return nil
}

// Close stops transmission and releases devices.
func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.enc == nil {
		return nil
	}
	return t.release()
}

func (t *Transmitter) ready() error {
	switch {
	case t.closed:
		return errClosed
	case t.enc == nil:
		return errNotReady
	}
	return nil
}

func (t *Transmitter) release() error {
	err := t.enc.Stop()
	if err != nil {
		t.cfg.Logger.Warning("could not stop encoder", "error", err.Error())
	}
	err = closeAll(t.closers)
	t.enc, t.closers = nil, nil
	return err
}
