/*
NAME
  colour_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sstv

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestBlack(t *testing.T) {
	black := RGB(0, 0, 0)
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "Y", got: Luma(black), want: 16},
		{name: "R-Y", got: ChromaRY(black), want: 128},
		{name: "B-Y", got: ChromaBY(black), want: 128},
		{name: "luma tone", got: Frequency(Luma(black)), want: 1500 + 16*800.0/255},
	}
	for _, test := range tests {
		if math.Abs(test.got-test.want) > tolerance {
			t.Errorf("%s = %v, want %v", test.name, test.got, test.want)
		}
	}
}

func TestCorners(t *testing.T) {
	for _, r := range []uint8{0, 255} {
		for _, g := range []uint8{0, 255} {
			for _, b := range []uint8{0, 255} {
				p := RGB(r, g, b)
				for _, k := range []Kind{ScanLuma, ScanChromaRY, ScanChromaBY} {
					f := Frequency(channel(k, p))
					if f < BlackFreq || f > WhiteFreq {
						t.Errorf("%06x %v frequency %v out of range", uint32(p), k, f)
					}
				}
			}
		}
	}
}

func TestFrequency(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 0, want: 1500},
		{in: 255, want: 2300},
		{in: 127.5, want: 1900},
		{in: -10, want: 1500},
		{in: 300, want: 2300},
	}
	for _, test := range tests {
		got := Frequency(test.in)
		if math.Abs(got-test.want) > tolerance {
			t.Errorf("Frequency(%v) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestPixelComponents(t *testing.T) {
	p := RGB(0x12, 0x34, 0x56)
	if p != 0x123456 {
		t.Errorf("RGB packed as %06x", uint32(p))
	}
	r, g, b := p.Components()
	if r != 0x12 || g != 0x34 || b != 0x56 {
		t.Errorf("got components %x %x %x", r, g, b)
	}
}

func TestChannelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-scan kind")
		}
	}()
	channel(Porch, 0)
}
