/*
NAME
  spectrum.go

DESCRIPTION
  spectrum.go contains functions for spectral analysis of PCM audio.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/pkg/errors"
)

// PeakFrequency returns the frequency in Hz of the strongest component of the
// first channel of b. The peak bin is refined by parabolic interpolation of
// the log magnitudes of its neighbours.
func PeakFrequency(b Buffer) (float64, error) {
	x, err := Floats(b)
	if err != nil {
		return 0, errors.Wrap(err, "could not convert to floats")
	}
	if len(x) < 4 {
		return 0, errors.New("not enough samples for spectrum")
	}
	window.Apply(x, window.Hann)
	X := fft.FFTReal(x)

	// Only the first half of the spectrum is unique for real input.
	mag := make([]float64, len(X)/2)
	peak := 1
	for i := range mag {
		mag[i] = cmplx.Abs(X[i])
		if i > 0 && mag[i] > mag[peak] {
			peak = i
		}
	}

	bin := float64(peak)
	if peak > 0 && peak < len(mag)-1 && mag[peak-1] > 0 && mag[peak+1] > 0 {
		a, c, m := math.Log(mag[peak-1]), math.Log(mag[peak+1]), math.Log(mag[peak])
		if d := a - 2*m + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin * float64(b.Format.Rate) / float64(len(x)), nil
}

