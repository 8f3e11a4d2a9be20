/*
NAME
  sx127x.go

DESCRIPTION
  sx127x.go provides a driver for SX1276/77/78/79 transceivers used as an
  unmodulated FSK carrier whose frequency is shifted to produce tones.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sx127x provides direct mode transmission with SX127x radios over SPI.
package sx127x

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kidoman/embd"

	"github.com/ausocean/sstv/device"
	"github.com/ausocean/sstv/transmit/config"
	"github.com/ausocean/utils/logging"
)

const pkg = "sx127x: "

// Registers.
const (
	regOpMode        = 0x01
	regFdevMsb       = 0x04
	regFrfMsb        = 0x06
	regPaConfig      = 0x09
	regPacketConfig2 = 0x31
	regVersion       = 0x42
)

// RegOpMode values, FSK modulation with the low frequency register bank.
const (
	modeSleep   = 0x08
	modeStandby = 0x09
	modeTx      = 0x0b
)

const (
	writeBit    = 0x80
	chipVersion = 0x12
	paBoost     = 0xf0 // PA_BOOST output with maximum power limit.

	// Step is the frequency synthesiser resolution in Hz.
	Step = 32e6 / (1 << 19)
)

const (
	defaultSPISpeed = 1000000
	defaultTXPower  = 10
	minTXPower      = 2
	maxTXPower      = 17
)

var (
	errInvalidSPISpeed = errors.New("invalid SPI speed, defaulting")
	errInvalidTXPower  = errors.New("invalid TX power, defaulting")
	errNotStarted      = errors.New("radio not started")
)

// Bus is the SPI bus connected to the radio.
type Bus interface {
	TransferAndReceiveData(buf []uint8) error
	Close() error
}

// Radio is an SX127x transceiver. It implements sstv.Radio.
type Radio struct {
	log     logging.Logger
	mu      sync.Mutex
	bus     Bus
	ownsSPI bool // Whether Close should release the embd SPI driver.
	mode    uint8
	channel uint
	speed   uint
	power   int
}

// New returns a Radio which logs to l. Set and Start must be called before use.
func New(l logging.Logger) *Radio {
	return &Radio{log: l, speed: defaultSPISpeed, power: defaultTXPower}
}

// NewWithBus returns a Radio using bus at the given output power in dBm.
// Start must be called before use.
func NewWithBus(bus Bus, power int, l logging.Logger) *Radio {
	return &Radio{log: l, bus: bus, speed: defaultSPISpeed, power: power}
}

// Name returns the name of the device.
func (r *Radio) Name() string { return "SX127x" }

// Set configures the SPI channel, speed and output power from c. Fields that
// are not valid are defaulted and reported in a device.MultiError.
func (r *Radio) Set(c config.Config) error {
	var errs device.MultiError
	if c.SPISpeed == 0 {
		errs = append(errs, errInvalidSPISpeed)
		c.SPISpeed = defaultSPISpeed
	}
	if c.TXPower < minTXPower || c.TXPower > maxTXPower {
		errs = append(errs, errInvalidTXPower)
		c.TXPower = defaultTXPower
	}
	r.mu.Lock()
	r.channel, r.speed, r.power = c.SPIChannel, c.SPISpeed, c.TXPower
	r.mu.Unlock()
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Start opens the SPI bus if necessary, checks the chip version and
// configures the radio for continuous FSK transmission with no deviation.
func (r *Radio) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil {
		err := embd.InitSPI()
		if err != nil {
			return fmt.Errorf("could not init SPI: %w", err)
		}
		r.bus = embd.NewSPIBus(embd.SPIMode0, byte(r.channel), int(r.speed), 8, 0)
		r.ownsSPI = true
	}

	v, err := r.read(regVersion)
	if err != nil {
		return fmt.Errorf("could not read version: %w", err)
	}
	if v != chipVersion {
		return fmt.Errorf("unexpected chip version 0x%02x", v)
	}
	r.log.Debug(pkg+"chip found", "version", v)

	for _, w := range []struct {
		reg uint8
		val []uint8
	}{
		{regOpMode, []uint8{modeSleep}},
		{regOpMode, []uint8{modeStandby}},
		{regFdevMsb, []uint8{0, 0}},
		{regPacketConfig2, []uint8{0}}, // Continuous mode.
		{regPaConfig, []uint8{paBoost | uint8(r.power-2)}},
	} {
		err = r.write(w.reg, w.val...)
		if err != nil {
			return fmt.Errorf("could not configure radio: %w", err)
		}
	}
	r.mode = modeStandby
	r.log.Info(pkg+"radio configured", "power", r.power)
	return nil
}

// StartDirect prepares for direct transmission. The carrier is switched on
// by the first call to TransmitDirect.
func (r *Radio) StartDirect() error {
	return r.setMode(modeStandby)
}

// TransmitDirect sets the carrier frequency register to frf steps and
// transmits.
func (r *Radio) TransmitDirect(frf uint32) error {
	r.mu.Lock()
	if r.bus == nil {
		r.mu.Unlock()
		return errNotStarted
	}
	err := r.write(regFrfMsb, uint8(frf>>16), uint8(frf>>8), uint8(frf))
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.setMode(modeTx)
}

// Standby stops transmission.
func (r *Radio) Standby() error {
	return r.setMode(modeStandby)
}

// FrequencyStep returns Step.
func (r *Radio) FrequencyStep() float64 { return Step }

// Close puts the radio to sleep and releases the bus.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil {
		return nil
	}
	var errs device.MultiError
	if err := r.write(regOpMode, modeSleep); err != nil {
		errs = append(errs, err)
	}
	if err := r.bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.ownsSPI {
		if err := embd.CloseSPI(); err != nil {
			errs = append(errs, err)
		}
	}
	r.bus = nil
	if len(errs) != 0 {
		return errs
	}
	return nil
}

func (r *Radio) setMode(m uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil {
		return errNotStarted
	}
	if r.mode == m {
		return nil
	}
	err := r.write(regOpMode, m)
	if err != nil {
		return err
	}
	r.mode = m
	return nil
}

// write writes vals to consecutive registers starting at reg.
func (r *Radio) write(reg uint8, vals ...uint8) error {
	buf := append([]uint8{reg | writeBit}, vals...)
	return r.bus.TransferAndReceiveData(buf)
}

func (r *Radio) read(reg uint8) (uint8, error) {
	buf := []uint8{reg &^ writeBit, 0}
	err := r.bus.TransferAndReceiveData(buf)
	if err != nil {
		return 0, err
	}
	return buf[1], nil
}
