/*
NAME
  ptt.go

DESCRIPTION
  ptt.go provides a push-to-talk keyer driving an external transmitter
  through a GPIO pin.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ptt provides push-to-talk control of an external transmitter.
package ptt

import (
	"fmt"
	"sync"

	"github.com/kidoman/embd"

	"github.com/ausocean/utils/logging"
)

const pkg = "ptt: "

// Pin is a digital output.
type Pin interface {
	Write(val int) error
	Close() error
}

// Keyer keys a transmitter by driving a pin. It implements device.Keyer.
type Keyer struct {
	log       logging.Logger
	mu        sync.Mutex
	pin       Pin
	activeLow bool
	ownsGPIO  bool
	keyed     bool
}

// Option configures a Keyer.
type Option func(*Keyer) error

// ActiveLow has the keyer drive the pin low to transmit.
func ActiveLow() Option {
	return func(k *Keyer) error {
		k.activeLow = true
		return nil
	}
}

// New opens the GPIO pin identified by key, for example a header pin number,
// as an output and leaves the transmitter unkeyed.
func New(key interface{}, l logging.Logger, options ...Option) (*Keyer, error) {
	err := embd.InitGPIO()
	if err != nil {
		return nil, fmt.Errorf("could not init GPIO: %w", err)
	}
	p, err := embd.NewDigitalPin(key)
	if err != nil {
		embd.CloseGPIO()
		return nil, fmt.Errorf("could not open pin %v: %w", key, err)
	}
	err = p.SetDirection(embd.Out)
	if err != nil {
		p.Close()
		embd.CloseGPIO()
		return nil, fmt.Errorf("could not set pin direction: %w", err)
	}
	k, err := NewWithPin(p, l, options...)
	if err != nil {
		p.Close()
		embd.CloseGPIO()
		return nil, err
	}
	k.ownsGPIO = true
	return k, nil
}

// NewWithPin returns a Keyer driving p and leaves the transmitter unkeyed.
func NewWithPin(p Pin, l logging.Logger, options ...Option) (*Keyer, error) {
	k := &Keyer{log: l, pin: p}
	for i, option := range options {
		err := option(k)
		if err != nil {
			return nil, fmt.Errorf("could not apply option no. %d: %w", i, err)
		}
	}
	err := k.pin.Write(k.level(false))
	if err != nil {
		return nil, fmt.Errorf("could not unkey: %w", err)
	}
	return k, nil
}

// Key keys the transmitter if on is true and unkeys it otherwise.
func (k *Keyer) Key(on bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.pin == nil {
		return fmt.Errorf("keyer closed")
	}
	if on == k.keyed {
		return nil
	}
	err := k.pin.Write(k.level(on))
	if err != nil {
		return err
	}
	k.keyed = on
	k.log.Debug(pkg+"transmitter keyed", "on", on)
	return nil
}

// Keyed returns whether the transmitter is keyed.
func (k *Keyer) Keyed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keyed
}

// Close unkeys the transmitter and releases the pin.
func (k *Keyer) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.pin == nil {
		return nil
	}
	err := k.pin.Write(k.level(false))
	k.keyed = false
	if cerr := k.pin.Close(); err == nil {
		err = cerr
	}
	k.pin = nil
	if k.ownsGPIO {
		if cerr := embd.CloseGPIO(); err == nil {
			err = cerr
		}
	}
	return err
}

func (k *Keyer) level(on bool) int {
	if on != k.activeLow {
		return embd.High
	}
	return embd.Low
}
