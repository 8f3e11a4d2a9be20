/*
NAME
  header.go

DESCRIPTION
  header.go provides the calibration header and VIS code tone sequence sent
  before each picture.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sstv

import (
	"math/bits"
	"time"
)

// Header tone frequencies in Hz.
const (
	LeaderFreq  = 1900.0
	BreakFreq   = 1200.0
	VISOneFreq  = 1100.0
	VISZeroFreq = 1300.0
)

// Header tone durations.
const (
	LeaderDuration = 300 * time.Millisecond
	BreakDuration  = 10 * time.Millisecond
	BitDuration    = 30 * time.Millisecond
)

const visBits = 7

// HeaderTones returns the unscaled header sequence for the given VIS code:
// leader, break, leader, start bit, seven data bits LSB first, an even
// parity bit and the stop bit.
func HeaderTones(vis uint8) []Tone {
	tones := make([]Tone, 0, 4+visBits+2)
	tones = append(tones,
		Tone{Kind: Header, Freq: LeaderFreq, Duration: LeaderDuration},
		Tone{Kind: Header, Freq: BreakFreq, Duration: BreakDuration},
		Tone{Kind: Header, Freq: LeaderFreq, Duration: LeaderDuration},
		Tone{Kind: Header, Freq: BreakFreq, Duration: BitDuration},
	)
	for i := 0; i < visBits; i++ {
		tones = append(tones, visBit(vis&(1<<i) != 0))
	}
	tones = append(tones,
		visBit(parity(vis)),
		Tone{Kind: Header, Freq: BreakFreq, Duration: BitDuration},
	)
	return tones
}

// parity returns the even parity bit of the seven VIS data bits, that is
// true when an odd number of them are set.
func parity(vis uint8) bool {
	return bits.OnesCount8(vis&0x7f)%2 == 1
}

func visBit(set bool) Tone {
	if set {
		return Tone{Kind: Header, Freq: VISOneFreq, Duration: BitDuration}
	}
	return Tone{Kind: Header, Freq: VISZeroFreq, Duration: BitDuration}
}
