/*
NAME
  setup.go

DESCRIPTION
  setup.go provides construction of the tone backend and its devices from a
  config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package transmit

import (
	"errors"
	"fmt"
	"io"

	"github.com/ausocean/sstv/codec/sstv"
	"github.com/ausocean/sstv/device"
	"github.com/ausocean/sstv/device/alsa"
	"github.com/ausocean/sstv/device/file"
	"github.com/ausocean/sstv/device/ptt"
	"github.com/ausocean/sstv/device/sx127x"
	"github.com/ausocean/sstv/device/tone"
	"github.com/ausocean/sstv/transmit/config"
)

// setupBackend creates the backend selected by the config, returning it with
// the devices to close when done.
func (t *Transmitter) setupBackend() (sstv.Backend, []io.Closer, error) {
	switch t.cfg.Backend {
	case config.BackendDirect:
		return t.setupDirect()
	case config.BackendAudio:
		return t.setupAudio()
	default:
		return nil, nil, fmt.Errorf("unrecognised backend: %v", t.cfg.Backend)
	}
}

func (t *Transmitter) setupDirect() (sstv.Backend, []io.Closer, error) {
	r := sx127x.New(t.cfg.Logger)
	t.set(r.Name(), r.Set)

	t.cfg.Logger.Debug("starting radio")
	err := r.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("could not start radio: %w", err)
	}
	t.cfg.Logger.Info("radio started")
	return sstv.NewDirect(r, sstv.MonotonicClock{}), []io.Closer{r}, nil
}

func (t *Transmitter) setupAudio() (sstv.Backend, []io.Closer, error) {
	var out device.AudioOutput
	switch t.cfg.Output {
	case config.OutputALSA:
		out = alsa.New(t.cfg.Logger)
	case config.OutputFile:
		out = file.New(t.cfg.Logger)
	default:
		return nil, nil, fmt.Errorf("unrecognised output: %v", t.cfg.Output)
	}
	t.set(out.Name(), out.Set)

	options := []tone.Option{tone.WithAmplitude(t.cfg.Amplitude)}
	var closers []io.Closer
	if t.cfg.PTTPin != "" {
		k, err := ptt.New(t.cfg.PTTPin, t.cfg.Logger, t.keyerOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("could not set up PTT: %w", err)
		}
		options = append(options, tone.WithKeyer(k, t.cfg.PTTDelay))
		closers = append(closers, k)
	}

	g, err := tone.New(out, t.cfg.Logger, options...)
	if err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("could not create tone generator: %w", err)
	}
	return sstv.NewAudio(g, g), append(closers, stopper{g}), nil
}

func (t *Transmitter) keyerOptions() []ptt.Option {
	if t.cfg.PTTActiveLow {
		return []ptt.Option{ptt.ActiveLow()}
	}
	return nil
}

// set applies the config to a device, logging any fields it defaulted.
func (t *Transmitter) set(name string, set func(config.Config) error) {
	err := set(t.cfg)
	var errs device.MultiError
	if errors.As(err, &errs) {
		t.cfg.Logger.Warning("errors from configuring device", "device", name, "errors", errs.Error())
		return
	}
	if err != nil {
		t.cfg.Logger.Warning("could not configure device", "device", name, "error", err.Error())
	}
}

// stopper closes a tone generator by stopping it.
type stopper struct{ g *tone.Generator }

func (s stopper) Close() error { return s.g.Stop() }

// closeAll closes closers in reverse order.
func closeAll(closers []io.Closer) error {
	var errs device.MultiError
	for i := len(closers) - 1; i >= 0; i-- {
		err := closers[i].Close()
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}
