/*
NAME
  mode.go

DESCRIPTION
  mode.go provides the declarative tone tables describing the supported SSTV
  modes and the scaling of those tables by a timing correction factor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sstv provides an encoder producing the timed tone sequence of
// Robot36 and Robot72 slow-scan television transmissions.
package sstv

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind identifies the role of a tone within a transmission.
type Kind int

// Tone kinds. Scan kinds take their frequency from pixel values, all other
// kinds carry a fixed frequency.
const (
	Header Kind = iota
	Sync
	Porch
	ScanLuma
	ScanChromaRY
	ScanChromaBY
)

func (k Kind) String() string {
	switch k {
	case Header:
		return "header"
	case Sync:
		return "sync"
	case Porch:
		return "porch"
	case ScanLuma:
		return "luma"
	case ScanChromaRY:
		return "R-Y"
	case ScanChromaBY:
		return "B-Y"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsScan returns true if tones of kind k are modulated by pixel values.
func (k Kind) IsScan() bool {
	return k == ScanLuma || k == ScanChromaRY || k == ScanChromaBY
}

// Tone describes a single tone burst. For scan tones Duration is the length
// of the whole scan across the line and Freq is unused.
type Tone struct {
	Kind     Kind
	Freq     float64
	Duration time.Duration
}

// Slot is one position in a line's tone sequence. Index 0 is the tone sent on
// even lines and index 1 the tone sent on odd lines.
type Slot [2]Tone

// Alternates returns true if the slot sends different tones on even and odd lines.
func (s Slot) Alternates() bool { return s[0] != s[1] }

// maxSlots is the maximum number of slots in a line.
const maxSlots = 8

// Errors returned when deriving modes.
var (
	ErrNoMode      = errors.New("no mode bound")
	ErrCorrection  = errors.New("correction factor must be positive")
	ErrUnknownMode = errors.New("unknown mode")
)

// Mode describes an SSTV mode. The zero Mode is unbound.
type Mode struct {
	Name   string
	VIS    uint8
	Width  int
	Height int
	slots  []Slot
}

func fixed(k Kind, freq float64, d time.Duration) Slot {
	t := Tone{Kind: k, Freq: freq, Duration: d}
	return Slot{t, t}
}

func scan(k Kind, d time.Duration) Slot {
	return fixed(k, 0, d)
}

func alternating(even, odd Tone) Slot {
	return Slot{even, odd}
}

// newMode builds a Mode from its slot table, panicking if the table is malformed.
func newMode(name string, vis uint8, width, height int, slots ...Slot) Mode {
	if vis == 0 || vis > 0x7f {
		panic(fmt.Sprintf("sstv: mode %s: VIS code %d out of range", name, vis))
	}
	if len(slots) == 0 || len(slots) > maxSlots {
		panic(fmt.Sprintf("sstv: mode %s: %d slots", name, len(slots)))
	}
	for i, s := range slots {
		if s[0].Kind.IsScan() != s[1].Kind.IsScan() {
			panic(fmt.Sprintf("sstv: mode %s: slot %d mixes scan and fixed tones", name, i))
		}
		for _, t := range s {
			if t.Kind.IsScan() && t.Freq != 0 {
				panic(fmt.Sprintf("sstv: mode %s: slot %d scan tone has fixed frequency", name, i))
			}
			if !t.Kind.IsScan() && t.Freq <= 0 {
				panic(fmt.Sprintf("sstv: mode %s: slot %d has no frequency", name, i))
			}
			if t.Duration <= 0 {
				panic(fmt.Sprintf("sstv: mode %s: slot %d has no duration", name, i))
			}
		}
	}
	return Mode{Name: name, VIS: vis, Width: width, Height: height, slots: slots}
}

// Robot modes. Both send the luma scan of every line followed by one of the
// two chroma channels, R-Y on even lines and B-Y on odd lines. Robot72 drops
// its porch to 1500Hz before B-Y.
var (
	Robot36 = newMode("Robot36", 8, 320, 240,
		fixed(Sync, 1200, 9*time.Millisecond),
		fixed(Porch, 1500, 3*time.Millisecond),
		scan(ScanLuma, 88*time.Millisecond),
		alternating(
			Tone{Kind: Porch, Freq: 1500, Duration: 4500 * time.Microsecond},
			Tone{Kind: Porch, Freq: 2300, Duration: 4500 * time.Microsecond},
		),
		fixed(Porch, 1900, 1500*time.Microsecond),
		alternating(
			Tone{Kind: ScanChromaRY, Duration: 44 * time.Millisecond},
			Tone{Kind: ScanChromaBY, Duration: 44 * time.Millisecond},
		),
	)

	Robot72 = newMode("Robot72", 12, 320, 240,
		fixed(Sync, 1200, 9*time.Millisecond),
		fixed(Porch, 1500, 3*time.Millisecond),
		scan(ScanLuma, 138*time.Millisecond),
		alternating(
			Tone{Kind: Porch, Freq: 1500, Duration: 4500 * time.Microsecond},
			Tone{Kind: Porch, Freq: 2300, Duration: 4500 * time.Microsecond},
		),
		alternating(
			Tone{Kind: Porch, Freq: 1900, Duration: 1500 * time.Microsecond},
			Tone{Kind: Porch, Freq: 1500, Duration: 1500 * time.Microsecond},
		),
		alternating(
			Tone{Kind: ScanChromaRY, Duration: 69 * time.Millisecond},
			Tone{Kind: ScanChromaBY, Duration: 69 * time.Millisecond},
		),
	)
)

// Modes returns the supported modes.
func Modes() []Mode { return []Mode{Robot36, Robot72} }

// ModeByName returns the mode with the given name, ignoring case.
func ModeByName(name string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// ModeByVIS returns the mode identified by the given VIS code.
func ModeByVIS(vis uint8) (Mode, error) {
	for _, m := range Modes() {
		if m.VIS == vis {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("%w: VIS %d", ErrUnknownMode, vis)
}

// Slots returns a copy of the mode's slot table.
func (m Mode) Slots() []Slot {
	return append([]Slot(nil), m.slots...)
}

// Alternates returns true if any slot of the mode differs between even and odd lines.
func (m Mode) Alternates() bool {
	for _, s := range m.slots {
		if s.Alternates() {
			return true
		}
	}
	return false
}

// Scaled returns a copy of m with every duration multiplied by f.
// The receiver is not modified.
func (m Mode) Scaled(f float64) (Mode, error) {
	if m.VIS == 0 {
		return Mode{}, ErrNoMode
	}
	if !(f > 0) || math.IsInf(f, 0) {
		return Mode{}, fmt.Errorf("%w: %v", ErrCorrection, f)
	}
	s := make([]Slot, len(m.slots))
	for i, slot := range m.slots {
		for p, t := range slot {
			t.Duration = scale(t.Duration, f)
			s[i][p] = t
		}
	}
	m.slots = s
	return m, nil
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(math.Round(float64(d) * f))
}

// PixelDuration returns the duration of a single pixel of scan tone t.
func (m Mode) PixelDuration(t Tone) time.Duration {
	return t.Duration / time.Duration(m.Width)
}

// LineDuration returns the time taken to send one line of the given parity.
func (m Mode) LineDuration(odd bool) time.Duration {
	var d time.Duration
	for _, s := range m.slots {
		t := s[parityIndex(odd)]
		if t.Kind.IsScan() {
			d += m.PixelDuration(t) * time.Duration(m.Width)
			continue
		}
		d += t.Duration
	}
	return d
}

func parityIndex(odd bool) int {
	if odd {
		return 1
	}
	return 0
}
