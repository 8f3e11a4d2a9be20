/*
NAME
  mode_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sstv

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestModeLookup(t *testing.T) {
	tests := []struct {
		name string
		vis  uint8
		want Mode
	}{
		{name: "robot36", vis: 8, want: Robot36},
		{name: "ROBOT72", vis: 12, want: Robot72},
	}
	opt := cmp.AllowUnexported(Mode{})
	for _, test := range tests {
		got, err := ModeByName(test.name)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", test.name, err)
		}
		if !cmp.Equal(got, test.want, opt) {
			t.Errorf("ModeByName(%q) did not get expected mode: %s", test.name, cmp.Diff(test.want, got, opt))
		}
		got, err = ModeByVIS(test.vis)
		if err != nil {
			t.Fatalf("unexpected error for VIS %d: %v", test.vis, err)
		}
		if got.Name != test.want.Name {
			t.Errorf("ModeByVIS(%d) = %s, want %s", test.vis, got.Name, test.want.Name)
		}
	}

	_, err := ModeByName("Scottie1")
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	_, err = ModeByVIS(60)
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestLineDuration(t *testing.T) {
	tests := []struct {
		mode Mode
		want time.Duration
	}{
		{mode: Robot36, want: 150 * time.Millisecond},
		{mode: Robot72, want: 225 * time.Millisecond},
	}
	for _, test := range tests {
		for _, odd := range []bool{false, true} {
			got := test.mode.LineDuration(odd)
			if got != test.want {
				t.Errorf("%s line duration (odd: %v) = %v, want %v", test.mode.Name, odd, got, test.want)
			}
		}
	}
}

func TestPixelDuration(t *testing.T) {
	tests := []struct {
		mode         Mode
		luma, chroma time.Duration
	}{
		{mode: Robot36, luma: 275 * time.Microsecond, chroma: 137500 * time.Nanosecond},
		{mode: Robot72, luma: 431250 * time.Nanosecond, chroma: 215625 * time.Nanosecond},
	}
	for _, test := range tests {
		slots := test.mode.Slots()
		if got := test.mode.PixelDuration(slots[2][0]); got != test.luma {
			t.Errorf("%s luma pixel = %v, want %v", test.mode.Name, got, test.luma)
		}
		if got := test.mode.PixelDuration(slots[5][1]); got != test.chroma {
			t.Errorf("%s chroma pixel = %v, want %v", test.mode.Name, got, test.chroma)
		}
	}
}

func TestScaled(t *testing.T) {
	opt := cmp.AllowUnexported(Mode{})

	same, err := Robot36.Scaled(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmp.Equal(same, Robot36, opt) {
		t.Errorf("scaling by 1 changed mode: %s", cmp.Diff(Robot36, same, opt))
	}

	before := Robot36.Slots()
	double, err := Robot36.Scaled(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cmp.Equal(Robot36.Slots(), before) {
		t.Error("scaling modified the base mode")
	}
	for i, s := range double.Slots() {
		for p := range s {
			if s[p].Duration != 2*before[i][p].Duration {
				t.Errorf("slot %d parity %d: got %v, want %v", i, p, s[p].Duration, 2*before[i][p].Duration)
			}
		}
	}

	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Robot36.Scaled(f)
		if !errors.Is(err, ErrCorrection) {
			t.Errorf("Scaled(%v): expected ErrCorrection, got %v", f, err)
		}
	}

	_, err = Mode{}.Scaled(1)
	if err != ErrNoMode {
		t.Errorf("expected ErrNoMode for unbound mode, got %v", err)
	}
}

func TestAlternates(t *testing.T) {
	for _, m := range Modes() {
		if !m.Alternates() {
			t.Errorf("%s does not alternate", m.Name)
		}
	}
	plain := newMode("plain", 1, 4, 4,
		fixed(Sync, 1200, time.Millisecond),
		scan(ScanLuma, time.Millisecond),
	)
	if plain.Alternates() {
		t.Error("mode without alternating slots reported as alternating")
	}
}

func TestNewModePanics(t *testing.T) {
	tests := []struct {
		name  string
		vis   uint8
		slots []Slot
	}{
		{name: "no slots", vis: 1},
		{name: "bad VIS", vis: 0x80, slots: []Slot{fixed(Sync, 1200, time.Millisecond)}},
		{name: "mixed slot", vis: 1, slots: []Slot{alternating(
			Tone{Kind: Porch, Freq: 1500, Duration: time.Millisecond},
			Tone{Kind: ScanLuma, Duration: time.Millisecond},
		)}},
		{name: "scan with frequency", vis: 1, slots: []Slot{fixed(ScanLuma, 1500, time.Millisecond)}},
		{name: "fixed without frequency", vis: 1, slots: []Slot{fixed(Porch, 0, time.Millisecond)}},
		{name: "no duration", vis: 1, slots: []Slot{fixed(Porch, 1500, 0)}},
		{name: "too many slots", vis: 1, slots: make([]Slot, maxSlots+1)},
	}
	for _, test := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", test.name)
				}
			}()
			newMode(test.name, test.vis, 4, 4, test.slots...)
		}()
	}
}
