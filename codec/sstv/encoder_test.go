/*
NAME
  encoder_test.go

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

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

var errBackend = errors.New("backend failure")

// event is a tone asserted on fakeBackend.
type event struct {
	Freq       float64
	Duration   time.Duration
	Continuous bool
}

// fakeBackend records asserted tones against a simulated clock.
type fakeBackend struct {
	now     time.Time
	events  []event
	audio   bool
	base    float64
	stopped bool
	failAt  int // Fail the assertion with this 1-based index.
}

func (b *fakeBackend) Now() time.Time { return b.now }

func (b *fakeBackend) WaitUntil(start time.Time, d time.Duration) {
	b.now = start.Add(d)
	b.events[len(b.events)-1].Duration = d
}

func (b *fakeBackend) Begin(base float64) error {
	b.base = base
	return nil
}

func (b *fakeBackend) Assert(freq float64, continuous bool) error {
	if b.failAt != 0 && len(b.events)+1 == b.failAt {
		return errBackend
	}
	b.events = append(b.events, event{Freq: freq, Continuous: continuous})
	return nil
}

func (b *fakeBackend) Stop() error {
	b.stopped = true
	return nil
}

func (b *fakeBackend) Audio() bool { return b.audio }

func newTestEncoder(t *testing.T, m Mode, options ...Option) (*Encoder, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{audio: true}
	e, err := New(b, &dumbLogger{}, options...)
	if err != nil {
		t.Fatalf("could not create encoder: %v", err)
	}
	err = e.BeginAudio(m)
	if err != nil {
		t.Fatalf("could not begin: %v", err)
	}
	return e, b
}

func uniform(p Pixel, n int) []Pixel {
	l := make([]Pixel, n)
	for i := range l {
		l[i] = p
	}
	return l
}

func total(events []event) time.Duration {
	var d time.Duration
	for _, e := range events {
		d += e.Duration
	}
	return d
}

func TestHeaderParity(t *testing.T) {
	tests := []struct {
		vis    uint8
		bits   []float64
		parity float64
	}{
		{
			vis:    8,
			bits:   []float64{1300, 1300, 1300, 1100, 1300, 1300, 1300},
			parity: 1100,
		},
		{
			vis:    12,
			bits:   []float64{1300, 1300, 1100, 1100, 1300, 1300, 1300},
			parity: 1300,
		},
	}
	for _, test := range tests {
		tones := HeaderTones(test.vis)
		if len(tones) != 13 {
			t.Fatalf("VIS %d: got %d header tones, want 13", test.vis, len(tones))
		}
		var bits []float64
		for _, tone := range tones[4:11] {
			bits = append(bits, tone.Freq)
		}
		if !cmp.Equal(bits, test.bits) {
			t.Errorf("VIS %d data bits: %s", test.vis, cmp.Diff(test.bits, bits))
		}
		if tones[11].Freq != test.parity {
			t.Errorf("VIS %d parity tone = %v, want %v", test.vis, tones[11].Freq, test.parity)
		}
	}
}

func TestHeaderDuration(t *testing.T) {
	const unscaled = 910 * time.Millisecond
	tests := []struct {
		correction float64
		want       time.Duration
	}{
		{correction: 1, want: unscaled},
		{correction: 1.5, want: 1365 * time.Millisecond},
		{correction: 0.5, want: 455 * time.Millisecond},
	}
	for _, test := range tests {
		e, b := newTestEncoder(t, Robot36)
		err := e.SetCorrection(test.correction)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = e.SendHeader()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := total(b.events); got != test.want {
			t.Errorf("correction %v: header took %v, want %v", test.correction, got, test.want)
		}
		want := []event{
			{Freq: 1900, Duration: 300 * time.Millisecond},
			{Freq: 1200, Duration: 10 * time.Millisecond},
			{Freq: 1900, Duration: 300 * time.Millisecond},
			{Freq: 1200, Duration: 30 * time.Millisecond},
		}
		for i := range want {
			want[i].Duration = scale(want[i].Duration, test.correction)
		}
		if !cmp.Equal(b.events[:4], want) {
			t.Errorf("correction %v: unexpected preamble: %s", test.correction, cmp.Diff(want, b.events[:4]))
		}
	}
}

func TestHeaderDurationLinear(t *testing.T) {
	const c = 1.0123
	e, b := newTestEncoder(t, Robot72)
	if err := e.SetCorrection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SendHeader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := c * float64(910*time.Millisecond)
	// Each of the 13 tones is rounded to the nearest nanosecond.
	if got := float64(total(b.events)); math.Abs(got-want) > 13 {
		t.Errorf("header took %vns, want %vns", got, want)
	}
}

func TestSendLineOrder(t *testing.T) {
	e, b := newTestEncoder(t, Robot36)
	p := RGB(200, 100, 50)
	err := e.SendLine(uniform(p, 320))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.events) != 644 {
		t.Fatalf("got %d tones, want 644", len(b.events))
	}

	check := func(i int, freq float64, d time.Duration) {
		t.Helper()
		got := b.events[i]
		if math.Abs(got.Freq-freq) > tolerance || got.Duration != d {
			t.Errorf("tone %d = %v Hz for %v, want %v Hz for %v", i, got.Freq, got.Duration, freq, d)
		}
	}
	check(0, 1200, 9*time.Millisecond)
	check(1, 1500, 3*time.Millisecond)
	for i := 2; i < 322; i++ {
		check(i, Frequency(Luma(p)), 275*time.Microsecond)
	}
	check(322, 1500, 4500*time.Microsecond)
	check(323, 1900, 1500*time.Microsecond)
	for i := 324; i < 644; i++ {
		check(i, Frequency(ChromaRY(p)), 137500*time.Nanosecond)
	}
	if got := total(b.events); got != Robot36.LineDuration(false) {
		t.Errorf("line took %v, want %v", got, Robot36.LineDuration(false))
	}
}

func TestSendLineOrderRobot72(t *testing.T) {
	e, b := newTestEncoder(t, Robot72)
	p := RGB(30, 160, 220)
	for i := 0; i < 2; i++ {
		err := e.SendLine(uniform(p, 320))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(b.events) != 2*644 {
		t.Fatalf("got %d tones, want %d", len(b.events), 2*644)
	}

	tests := []struct {
		line               int
		sep, porch, chroma float64
	}{
		{line: 0, sep: 1500, porch: 1900, chroma: Frequency(ChromaRY(p))},
		{line: 1, sep: 2300, porch: 1500, chroma: Frequency(ChromaBY(p))},
	}
	for _, test := range tests {
		i := test.line * 644
		if b.events[i].Freq != 1200 || b.events[i+1].Freq != 1500 {
			t.Errorf("line %d: sync %v porch %v", test.line, b.events[i].Freq, b.events[i+1].Freq)
		}
		if got := b.events[i+2].Duration; got != 138*time.Millisecond/320 {
			t.Errorf("line %d: luma pixel took %v", test.line, got)
		}
		sep, porch := b.events[i+322], b.events[i+323]
		if sep.Freq != test.sep || sep.Duration != 4500*time.Microsecond {
			t.Errorf("line %d: separator %v Hz for %v, want %v Hz", test.line, sep.Freq, sep.Duration, test.sep)
		}
		if porch.Freq != test.porch || porch.Duration != 1500*time.Microsecond {
			t.Errorf("line %d: porch %v Hz for %v, want %v Hz", test.line, porch.Freq, porch.Duration, test.porch)
		}
		if got := b.events[i+324]; math.Abs(got.Freq-test.chroma) > tolerance || got.Duration != 69*time.Millisecond/320 {
			t.Errorf("line %d: chroma %v Hz for %v, want %v Hz", test.line, got.Freq, got.Duration, test.chroma)
		}
	}
	if got := total(b.events); got != 2*225*time.Millisecond {
		t.Errorf("lines took %v, want %v", got, 2*225*time.Millisecond)
	}
}

// chromaFreq returns the frequency of the first chroma tone of the line
// starting at event index i, and the separator frequency.
func chromaFreq(b *fakeBackend, i int) (sep, chroma float64) {
	return b.events[i+322].Freq, b.events[i+324].Freq
}

func TestChromaAlternation(t *testing.T) {
	e, b := newTestEncoder(t, Robot36)
	p := RGB(10, 200, 30)
	line := uniform(p, 320)

	want := []struct{ sep, chroma float64 }{
		{1500, Frequency(ChromaRY(p))},
		{2300, Frequency(ChromaBY(p))},
		{1500, Frequency(ChromaRY(p))},
		{2300, Frequency(ChromaBY(p))},
	}
	for i, w := range want {
		if err := e.SendLine(line); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sep, chroma := chromaFreq(b, i*644)
		if sep != w.sep || math.Abs(chroma-w.chroma) > tolerance {
			t.Errorf("line %d: separator %v chroma %v, want %v and %v", i, sep, chroma, w.sep, w.chroma)
		}
	}
	if e.odd {
		t.Error("parity not restored after an even number of lines")
	}

	// A new header restarts on an even line.
	if err := e.SendLine(line); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SendHeader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := len(b.events)
	if err := e.SendLine(line); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sep, _ := chromaFreq(b, n); sep != 1500 {
		t.Errorf("first line after header has separator %v, want 1500", sep)
	}
}

func TestSendLineError(t *testing.T) {
	e, b := newTestEncoder(t, Robot36)
	line := uniform(RGB(1, 2, 3), 320)
	b.failAt = 400
	err := e.SendLine(line)
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if e.odd {
		t.Error("parity toggled by failed line")
	}
	b.failAt = 0
	n := len(b.events)
	if err := e.SendLine(line); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sep, _ := chromaFreq(b, n); sep != 1500 {
		t.Errorf("resent line has separator %v, want 1500", sep)
	}
}

func TestSendHeaderError(t *testing.T) {
	e, b := newTestEncoder(t, Robot36)
	b.failAt = 5
	err := e.SendHeader()
	if !errors.Is(err, errBackend) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestChromaAveraging(t *testing.T) {
	e, b := newTestEncoder(t, Robot36, WithChromaAveraging())
	white := uniform(RGB(255, 255, 255), 320)
	red := uniform(RGB(255, 0, 0), 320)

	lines := []struct {
		line []Pixel
		want float64
	}{
		{line: white, want: Frequency(ChromaRY(white[0]))},
		{line: white, want: Frequency(ChromaBY(white[0]))},
		{line: red, want: Frequency((ChromaRY(red[0]) + ChromaRY(white[0])) / 2)},
		{line: red, want: Frequency((ChromaBY(red[0]) + ChromaBY(white[0])) / 2)},
		{line: red, want: Frequency(ChromaRY(red[0]))},
	}
	for i, l := range lines {
		if err := e.SendLine(l.line); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, got := chromaFreq(b, i*644)
		if math.Abs(got-l.want) > tolerance {
			t.Errorf("line %d chroma = %v, want %v", i, got, l.want)
		}
	}

	// History does not carry across pictures.
	if err := e.SendHeader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := len(b.events)
	if err := e.SendLine(white); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, got := chromaFreq(b, n); math.Abs(got-Frequency(ChromaRY(white[0]))) > tolerance {
		t.Errorf("first line after header blended: got %v", got)
	}
}

func TestSetCorrection(t *testing.T) {
	b := &fakeBackend{}
	e, err := New(b, &dumbLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SetCorrection(1.1); err != ErrNoMode {
		t.Errorf("expected ErrNoMode before Begin, got %v", err)
	}
	if err := e.SendHeader(); err != ErrNoMode {
		t.Errorf("expected ErrNoMode from SendHeader before Begin, got %v", err)
	}
	if err := e.Begin(434e6, Robot36); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.base != 434e6 {
		t.Errorf("backend began at %v", b.base)
	}

	for i := 0; i < 3; i++ {
		if err := e.SetCorrection(2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := e.Mode().LineDuration(false); got != 300*time.Millisecond {
		t.Errorf("correction compounded: line duration %v", got)
	}
	if err := e.SetCorrection(0); !errors.Is(err, ErrCorrection) {
		t.Errorf("expected ErrCorrection, got %v", err)
	}
	if e.Correction() != 2 {
		t.Errorf("failed correction changed factor to %v", e.Correction())
	}

	if err := e.SetCorrection(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := cmp.AllowUnexported(Mode{})
	if !cmp.Equal(e.Mode(), Robot36, opt) {
		t.Errorf("correction of 1 changed mode: %s", cmp.Diff(Robot36, e.Mode(), opt))
	}
}

func TestBeginAudioWrongBackend(t *testing.T) {
	e, err := New(&fakeBackend{audio: false}, &dumbLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.BeginAudio(Robot36); err != ErrWrongBackend {
		t.Errorf("expected ErrWrongBackend, got %v", err)
	}
	if err := e.Begin(434e6, Mode{}); err != ErrNoMode {
		t.Errorf("expected ErrNoMode for unbound mode, got %v", err)
	}
}

func TestIdleStop(t *testing.T) {
	e, b := newTestEncoder(t, Robot72)
	if e.PictureHeight() != 240 {
		t.Errorf("picture height = %d", e.PictureHeight())
	}
	start := b.now
	if err := e.Idle(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []event{{Freq: 1900, Continuous: true}}
	if !cmp.Equal(b.events, want) {
		t.Errorf("unexpected idle tone: %s", cmp.Diff(want, b.events))
	}
	if b.now != start {
		t.Error("idle waited")
	}
	if err := e.Stop(); err != nil || !b.stopped {
		t.Errorf("stop failed: %v", err)
	}
}

// fakeRadio records direct mode frequency register writes.
type fakeRadio struct {
	direct  bool
	standby bool
	frf     []uint32
}

func (r *fakeRadio) StartDirect() error {
	r.direct = true
	return nil
}

func (r *fakeRadio) TransmitDirect(frf uint32) error {
	r.frf = append(r.frf, frf)
	return nil
}

func (r *fakeRadio) Standby() error {
	r.standby = true
	return nil
}

func (r *fakeRadio) FrequencyStep() float64 { return 32e6 / (1 << 19) }

func TestDirectBackend(t *testing.T) {
	r := &fakeRadio{}
	b := NewDirect(r, MonotonicClock{})
	if b.Audio() {
		t.Error("direct backend reports audio")
	}
	e, err := New(b, &dumbLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.BeginAudio(Robot36); err != ErrWrongBackend {
		t.Errorf("expected ErrWrongBackend, got %v", err)
	}
	if err := e.Begin(434e6, Robot36); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.direct {
		t.Error("radio not in direct mode")
	}
	if err := e.Idle(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Assert(1100, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []uint32{0x6c8000 + 31, 0x6c8000 + 18}
	if !cmp.Equal(r.frf, want) {
		t.Errorf("unexpected frf values: %s", cmp.Diff(want, r.frf))
	}
	if err := e.Stop(); err != nil || !r.standby {
		t.Errorf("radio not in standby: %v", err)
	}

	if err := NewDirect(r, MonotonicClock{}).Begin(0); err == nil {
		t.Error("expected error for zero base frequency")
	}
}

func TestMonotonicClock(t *testing.T) {
	c := MonotonicClock{Spin: time.Millisecond}
	start := c.Now()
	c.WaitUntil(start, 5*time.Millisecond)
	if got := time.Since(start); got < 5*time.Millisecond {
		t.Errorf("returned after %v", got)
	}
	// A deadline in the past returns immediately.
	c.WaitUntil(start, 0)
}
