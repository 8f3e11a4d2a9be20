/*
NAME
  device.go

DESCRIPTION
  device.go provides AudioOutput, an interface that describes a configurable
  audio sink that can be started and stopped and to which audio is written,
  and Keyer, which keys a transmitter.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package device provides interfaces and implementations for the devices
// used to transmit SSTV: audio outputs, radios and transmitter keying.
package device

import (
	"fmt"
	"io"

	"github.com/ausocean/sstv/codec/pcm"
	"github.com/ausocean/sstv/transmit/config"
)

// AudioOutput describes a configurable audio sink. AudioOutput is an io.Writer
// accepting PCM in the format given by Format.
type AudioOutput interface {
	io.Writer

	// Name returns the name of the AudioOutput.
	Name() string

	// Set allows for configuration of the AudioOutput using a Config struct.
	// An implementation should specify what fields are considered. Fields
	// that are not valid are defaulted and reported in a MultiError.
	Set(c config.Config) error

	// Start opens the output, after which Write may be called.
	Start() error

	// Stop flushes and closes the output. From this point writes will no
	// longer be successful.
	Stop() error

	// IsRunning is used to determine if the output is running.
	IsRunning() bool

	// Format returns the format of audio accepted by Write. It is only
	// meaningful once Set has been called.
	Format() pcm.BufferFormat
}

// Keyer switches a transmitter between transmit and receive.
type Keyer interface {
	Key(on bool) error
}

// MultiError implements the built in error interface. MultiError is used here
// to collect multi errors during validation of configuration parameters for
// devices.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}
