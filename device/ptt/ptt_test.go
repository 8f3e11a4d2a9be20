/*
LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ptt

import (
	"errors"
	"testing"

	"github.com/ausocean/sstv/device"
	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

var _ device.Keyer = (*Keyer)(nil)

type fakePin struct {
	levels []int
	closed bool
	err    error
}

func (p *fakePin) Write(v int) error {
	if p.err != nil {
		return p.err
	}
	p.levels = append(p.levels, v)
	return nil
}

func (p *fakePin) Close() error {
	p.closed = true
	return nil
}

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		want    []int
	}{
		{name: "active high", want: []int{0, 1, 0, 0}},
		{name: "active low", options: []Option{ActiveLow()}, want: []int{1, 0, 1, 1}},
	}

	for _, test := range tests {
		p := &fakePin{}
		k, err := NewWithPin(p, (*logging.TestLogger)(t), test.options...)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		for _, on := range []bool{true, true, false} {
			err = k.Key(on)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", test.name, err)
			}
		}
		err = k.Close()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", test.name, err)
		}
		if !cmp.Equal(p.levels, test.want) {
			t.Errorf("%s: unexpected levels: %s", test.name, cmp.Diff(test.want, p.levels))
		}
		if !p.closed {
			t.Errorf("%s: pin not closed", test.name)
		}
		if k.Key(true) == nil {
			t.Errorf("%s: expected error keying closed keyer", test.name)
		}
	}
}

func TestKeyError(t *testing.T) {
	p := &fakePin{}
	k, err := NewWithPin(p, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.err = errors.New("pin failed")
	if k.Key(true) == nil {
		t.Error("expected error")
	}
	if k.Keyed() {
		t.Error("keyer reports keyed after failed write")
	}
}
