/*
NAME
  config.go

DESCRIPTION
  config.go provides the configuration settings for an SSTV transmitter.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for an SSTV transmitter.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Enums to define backends and outputs.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	// Backends.
	BackendDirect // Shift the carrier of an SX127x radio.
	BackendAudio  // Generate audio tones for an external transmitter.

	// Audio outputs.
	OutputALSA
	OutputFile
)

// Config provides parameters relevant to a transmitter. Default values for
// these fields are defined as consts in variables.go.
type Config struct {
	// Amplitude is the peak level of generated tones as a fraction of full scale.
	Amplitude float64

	// Backend selects how tones are produced.
	//
	// Valid values are defined by enums:
	// BackendDirect:
	//		Tones shift the carrier of an SX127x radio connected over SPI.
	//		BaseFrequency, SPIChannel, SPISpeed and TXPower apply.
	// BackendAudio:
	//		Tones are generated as audio and sent to Output. PTTPin keys the
	//		transmitter if set.
	Backend uint8

	BaseFrequency   float64 // Carrier frequency in MHz for the direct backend.
	BitDepth        uint    // Sample bit depth of generated audio.
	ChromaAveraging bool    // Average each chroma line with the previous line of the same channel.

	// Correction scales all tone durations, compensating for clock error of
	// the transmitting or receiving station.
	Correction float64

	// Device is the title of the ALSA playback device. The first playback
	// device is used if empty.
	Device string

	// Idle holds the leader tone after a picture instead of ending transmission.
	Idle bool

	// InputPath is an image file, or a directory watched for new images.
	InputPath string

	// Interval is the time between repeated transmissions of the test pattern.
	// A value of 0 sends the pattern once.
	Interval time.Duration

	// Logger holds an implementation of the Logger interface.
	// This must be set for the transmitter to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	MetricsAddress string // Address to serve Prometheus metrics on, disabled if empty.
	Mode           string // SSTV mode name, e.g. Robot36.

	// Output defines where generated audio is written.
	//
	// Valid values are defined by enums:
	// OutputALSA:
	//		Play through an ALSA device.
	// OutputFile:
	//		Write a WAV file to OutputPath.
	Output uint8

	OutputPath   string        // WAV file path for file output.
	PTTActiveLow bool          // Drive the PTT pin low to key the transmitter.
	PTTDelay     time.Duration // Delay between keying the transmitter and the first tone.
	PTTPin       string        // GPIO pin keying the transmitter, disabled if empty.
	SampleRate   uint          // Sample rate of generated audio in Hz.
	SPIChannel   uint          // SPI chip select of the radio.
	SPISpeed     uint          // SPI clock speed in Hz.
	TXPower      int           // Radio output power in dBm.
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
