/*
NAME
  alsa.go

DESCRIPTION
  alsa.go provides an implementation of the AudioOutput interface playing
  audio through an ALSA playback device.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package alsa provides audio output to ALSA playback devices.
package alsa

import (
	"errors"
	"fmt"
	"sync"

	yalsa "github.com/yobert/alsa"

	"github.com/ausocean/sstv/codec/pcm"
	"github.com/ausocean/sstv/device"
	"github.com/ausocean/sstv/transmit/config"
	"github.com/ausocean/utils/logging"
)

const pkg = "alsa: "

const (
	defaultSampleRate = 48000
	defaultBitDepth   = 16
)

// Configuration field errors.
var (
	errInvalidSampleRate = errors.New("invalid sample rate, defaulting")
	errInvalidBitDepth   = errors.New("invalid bitdepth, defaulting")
)

// Player is an ALSA playback device implementing device.AudioOutput. Audio
// written to it is mono, it is duplicated across channels if the device
// only plays stereo.
type Player struct {
	l        logging.Logger // Logger for device's routines to log to.
	mu       sync.Mutex
	title    string        // Name of audio device, or empty for the first playback device.
	dev      *yalsa.Device // ALSA playback device.
	channels int           // Channels negotiated with the device.
	Config                 // Configuration parameters for this device.
}

// Config provides parameters used by the ALSA device.
type Config struct {
	SampleRate uint
	BitDepth   uint
}

// New initializes and returns an ALSA player which has its logger set as the given logger.
func New(l logging.Logger) *Player { return &Player{l: l} }

// Name returns the name of the device.
func (d *Player) Name() string {
	return "ALSA"
}

// Set will take a Config struct and check the validity of the relevant fields.
// If fields are not valid, an error is added to the multiError and a default
// value is used. Set must be called before Start.
func (d *Player) Set(c config.Config) error {
	var errs device.MultiError
	if c.SampleRate <= 0 {
		errs = append(errs, errInvalidSampleRate)
		c.SampleRate = defaultSampleRate
	}
	if c.BitDepth != 16 && c.BitDepth != 32 {
		errs = append(errs, errInvalidBitDepth)
		c.BitDepth = defaultBitDepth
	}
	d.mu.Lock()
	d.Config = Config{SampleRate: c.SampleRate, BitDepth: c.BitDepth}
	d.title = c.Device
	d.mu.Unlock()
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Start opens the playback device.
func (d *Player) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		return nil
	}
	err := d.open()
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	return nil
}

// Stop closes the playback device.
func (d *Player) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		d.l.Debug(pkg+"closing device", "title", d.dev.Title)
		d.dev.Close()
		d.dev = nil
	}
	return nil
}

// IsRunning is used to determine if the ALSA device is open.
func (d *Player) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev != nil
}

// Format returns the mono format accepted by Write.
func (d *Player) Format() pcm.BufferFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	sf, err := pcm.SFFromBitDepth(d.BitDepth)
	if err != nil {
		sf = pcm.S16_LE
	}
	return pcm.BufferFormat{SFormat: sf, Rate: d.SampleRate, Channels: 1}
}

// Write plays p, which holds whole frames of mono audio in the format given
// by Format. Write blocks while the device buffer is full. An underrun
// re-prepares the device and retries once.
func (d *Player) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return 0, errors.New("ALSA device is closed, Player not started")
	}

	b := pcm.Buffer{Data: p}
	b.Format.Channels = 1
	b.Format.Rate = d.SampleRate
	b.Format.SFormat, _ = pcm.SFFromBitDepth(d.BitDepth)
	frames := len(p) / b.Format.FrameSize()
	if d.channels == 2 {
		var err error
		b, err = pcm.MonoToStereo(b)
		if err != nil {
			return 0, fmt.Errorf("channel conversion failed: %w", err)
		}
	}

	err := d.dev.Write(b.Data, frames)
	if err != nil {
		d.l.Warning(pkg+"write failed, preparing device", "error", err.Error())
		err = d.dev.Prepare()
		if err != nil {
			return 0, fmt.Errorf("could not prepare device: %w", err)
		}
		err = d.dev.Write(b.Data, frames)
		if err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// open the playback device with the configured title and prepare it to play.
// If the title is empty, the first playback device is used.
func (d *Player) open() error {
	// Open sound card and open playback device.
	d.l.Debug(pkg + "opening sound card")
	cards, err := yalsa.OpenCards()
	if err != nil {
		return err
	}
	defer yalsa.CloseCards(cards)

	d.l.Debug(pkg + "finding audio device")
	var dev *yalsa.Device
	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, cd := range devices {
			if cd.Type != yalsa.PCM || !cd.Play {
				continue
			}
			if cd.Title == d.title || d.title == "" {
				dev = cd
				break
			}
		}
		if dev != nil {
			break
		}
	}
	if dev == nil {
		return errors.New("no ALSA device found")
	}

	d.l.Debug(pkg+"opening ALSA device", "title", dev.Title)
	err = dev.Open()
	if err != nil {
		return err
	}
	err = d.negotiate(dev)
	if err != nil {
		dev.Close()
		return err
	}
	d.dev = dev
	return nil
}

// negotiate configures dev to play mono, or stereo if mono is unsupported,
// at the configured rate and bit depth.
func (d *Player) negotiate(dev *yalsa.Device) error {
	channels, err := dev.NegotiateChannels(1)
	if err != nil {
		d.l.Info(pkg+"device is unable to play mono, trying stereo", "error", err)
		channels, err = dev.NegotiateChannels(2)
	}
	if err != nil {
		return fmt.Errorf("device is unable to play with requested number of channels: %w", err)
	}
	d.channels = channels
	d.l.Debug(pkg+"alsa device channels set", "channels", channels)

	// Tones are timed in samples, so the rate must be exact.
	rate, err := dev.NegotiateRate(int(d.SampleRate))
	if err != nil {
		return err
	}
	if rate != int(d.SampleRate) {
		d.l.Warning(pkg+"unable to play at requested rate, using device rate", "rateRequested", d.SampleRate, "rate", rate)
		d.SampleRate = uint(rate)
	}
	d.l.Debug(pkg+"alsa device sample rate set", "rate", rate)

	var aFmt yalsa.FormatType
	switch d.BitDepth {
	case 16:
		aFmt = yalsa.S16_LE
	case 32:
		aFmt = yalsa.S32_LE
	default:
		return fmt.Errorf("unsupported sample bits %v", d.BitDepth)
	}
	devFmt, err := dev.NegotiateFormat(aFmt)
	if err != nil {
		return err
	}
	var bitdepth int
	switch devFmt {
	case yalsa.S16_LE:
		bitdepth = 16
	case yalsa.S32_LE:
		bitdepth = 32
	default:
		return fmt.Errorf("unsupported sample bits %v", d.BitDepth)
	}
	d.BitDepth = uint(bitdepth)
	d.l.Debug(pkg+"alsa device bit depth set", "bitdepth", bitdepth)

	// A 50ms period keeps latency low relative to a picture line.
	// Some devices only accept even period sizes while others want powers of 2.
	// So we will find the closest power of 2 to the desired period size.
	const wantPeriod = 0.05 //seconds
	wantPeriodSize := pcm.DataSize(uint(rate), uint(channels), uint(bitdepth), wantPeriod) / (channels * bitdepth / 8)
	periodSize, err := dev.NegotiatePeriodSize(nearestPowerOfTwo(wantPeriodSize))
	if err != nil {
		return err
	}
	d.l.Debug(pkg+"alsa device period size set", "periodsize", periodSize)

	// At least four period sizes should fit within the buffer.
	bufSize, err := dev.NegotiateBufferSize(periodSize * 4)
	if err != nil {
		return err
	}
	d.l.Debug(pkg+"alsa device buffer size set", "buffersize", bufSize)

	if err = dev.Prepare(); err != nil {
		return err
	}

	d.l.Debug(pkg + "successfully negotiated device params")
	return nil
}

// nearestPowerOfTwo finds and returns the nearest power of two to the given integer.
// If the lower and higher power of two are the same distance, it returns the higher power.
// For negative values, 1 is returned.
// Source: https://stackoverflow.com/a/45859570
func nearestPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	if n == 1 {
		return 2
	}
	v := n
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++         // higher power of 2
	x := v >> 1 // lower power of 2
	if (v - n) > (n - x) {
		return x
	}
	return v
}
