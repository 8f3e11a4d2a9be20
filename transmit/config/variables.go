/*
NAME
  variables.go

DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/sstv/codec/sstv"
	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyAmplitude       = "Amplitude"
	KeyBackend         = "Backend"
	KeyBaseFrequency   = "BaseFrequency"
	KeyBitDepth        = "BitDepth"
	KeyChromaAveraging = "ChromaAveraging"
	KeyCorrection      = "Correction"
	KeyDevice          = "Device"
	KeyIdle            = "Idle"
	KeyInputPath       = "InputPath"
	KeyInterval        = "Interval"
	KeyLogging         = "logging"
	KeyMetricsAddress  = "MetricsAddress"
	KeyMode            = "Mode"
	KeyOutput          = "Output"
	KeyOutputPath      = "OutputPath"
	KeyPTTActiveLow    = "PTTActiveLow"
	KeyPTTDelay        = "PTTDelay"
	KeyPTTPin          = "PTTPin"
	KeySampleRate      = "SampleRate"
	KeySPIChannel      = "SPIChannel"
	KeySPISpeed        = "SPISpeed"
	KeyTXPower         = "TXPower"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultAmplitude     = 0.5
	defaultBackend       = BackendAudio
	defaultBaseFrequency = 434.0 // MHz.
	defaultBitDepth      = 16
	defaultCorrection    = 1.0
	defaultMode          = "Robot36"
	defaultOutput        = OutputALSA
	defaultOutputPath    = "sstv.wav"
	defaultSampleRate    = 48000
	defaultSPISpeed      = 1000000
	defaultTXPower       = 10 // dBm.
	defaultVerbosity     = logging.Error

	minTXPower = 2
	maxTXPower = 17
)

// Variables describes the variables that can be used for transmitter control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyAmplitude,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Amplitude = parseFloat(KeyAmplitude, v, c) },
		Validate: func(c *Config) {
			if c.Amplitude <= 0 || c.Amplitude > 1 {
				c.LogInvalidField(KeyAmplitude, defaultAmplitude)
				c.Amplitude = defaultAmplitude
			}
		},
	},
	{
		Name: KeyBackend,
		Type: "enum:direct,audio",
		Update: func(c *Config, v string) {
			c.Backend = parseEnum(
				KeyBackend,
				v,
				map[string]uint8{
					"direct": BackendDirect,
					"audio":  BackendAudio,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Backend {
			case BackendDirect, BackendAudio:
			default:
				c.LogInvalidField(KeyBackend, defaultBackend)
				c.Backend = defaultBackend
			}
		},
	},
	{
		Name:   KeyBaseFrequency,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.BaseFrequency = parseFloat(KeyBaseFrequency, v, c) },
		Validate: func(c *Config) {
			if c.BaseFrequency <= 0 {
				c.LogInvalidField(KeyBaseFrequency, defaultBaseFrequency)
				c.BaseFrequency = defaultBaseFrequency
			}
		},
	},
	{
		Name:   KeyBitDepth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.BitDepth = parseUint(KeyBitDepth, v, c) },
		Validate: func(c *Config) {
			if c.BitDepth != 16 && c.BitDepth != 32 {
				c.LogInvalidField(KeyBitDepth, defaultBitDepth)
				c.BitDepth = defaultBitDepth
			}
		},
	},
	{
		Name:   KeyChromaAveraging,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.ChromaAveraging = parseBool(KeyChromaAveraging, v, c) },
	},
	{
		Name:   KeyCorrection,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Correction = parseFloat(KeyCorrection, v, c) },
		Validate: func(c *Config) {
			if c.Correction <= 0 {
				c.LogInvalidField(KeyCorrection, defaultCorrection)
				c.Correction = defaultCorrection
			}
		},
	},
	{
		Name:   KeyDevice,
		Type:   typeString,
		Update: func(c *Config, v string) { c.Device = v },
	},
	{
		Name:   KeyIdle,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Idle = parseBool(KeyIdle, v, c) },
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name: KeyInterval,
		Type: typeUint,
		Update: func(c *Config, v string) {
			c.Interval = time.Duration(parseUint(KeyInterval, v, c)) * time.Second
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyMetricsAddress,
		Type:   typeString,
		Update: func(c *Config, v string) { c.MetricsAddress = v },
	},
	{
		Name:   KeyMode,
		Type:   "enum:Robot36,Robot72,8,12",
		Update: func(c *Config, v string) { c.Mode = v },
		Validate: func(c *Config) {
			m, err := modeByNameOrVIS(c.Mode)
			if err != nil {
				c.LogInvalidField(KeyMode, defaultMode)
				c.Mode = defaultMode
				return
			}
			c.Mode = m.Name
		},
	},
	{
		Name: KeyOutput,
		Type: "enum:alsa,file",
		Update: func(c *Config, v string) {
			c.Output = parseEnum(
				KeyOutput,
				v,
				map[string]uint8{
					"alsa": OutputALSA,
					"file": OutputFile,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Output {
			case OutputALSA, OutputFile:
			default:
				c.LogInvalidField(KeyOutput, defaultOutput)
				c.Output = defaultOutput
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
		Validate: func(c *Config) {
			if c.Output == OutputFile && c.OutputPath == "" {
				c.LogInvalidField(KeyOutputPath, defaultOutputPath)
				c.OutputPath = defaultOutputPath
			}
		},
	},
	{
		Name:   KeyPTTActiveLow,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.PTTActiveLow = parseBool(KeyPTTActiveLow, v, c) },
	},
	{
		Name: KeyPTTDelay,
		Type: typeUint,
		Update: func(c *Config, v string) {
			c.PTTDelay = time.Duration(parseUint(KeyPTTDelay, v, c)) * time.Millisecond
		},
	},
	{
		Name:   KeyPTTPin,
		Type:   typeString,
		Update: func(c *Config, v string) { c.PTTPin = v },
	},
	{
		Name:   KeySampleRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SampleRate = parseUint(KeySampleRate, v, c) },
		Validate: func(c *Config) {
			if c.SampleRate < 8000 {
				c.LogInvalidField(KeySampleRate, defaultSampleRate)
				c.SampleRate = defaultSampleRate
			}
		},
	},
	{
		Name:   KeySPIChannel,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SPIChannel = parseUint(KeySPIChannel, v, c) },
	},
	{
		Name:   KeySPISpeed,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.SPISpeed = parseUint(KeySPISpeed, v, c) },
		Validate: func(c *Config) {
			if c.SPISpeed == 0 {
				c.LogInvalidField(KeySPISpeed, defaultSPISpeed)
				c.SPISpeed = defaultSPISpeed
			}
		},
	},
	{
		Name:   KeyTXPower,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.TXPower = parseInt(KeyTXPower, v, c) },
		Validate: func(c *Config) {
			if c.TXPower < minTXPower || c.TXPower > maxTXPower {
				c.LogInvalidField(KeyTXPower, defaultTXPower)
				c.TXPower = defaultTXPower
			}
		},
	},
}

// modeByNameOrVIS finds a mode by its name or by its VIS code in decimal.
func modeByNameOrVIS(v string) (sstv.Mode, error) {
	m, err := sstv.ModeByName(v)
	if err == nil {
		return m, nil
	}
	vis, perr := strconv.ParseUint(v, 10, 8)
	if perr != nil {
		return sstv.Mode{}, err
	}
	return sstv.ModeByVIS(uint8(vis))
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseFloat(n, v string, c *Config) float64 {
	_v, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}
