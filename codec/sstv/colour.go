/*
NAME
  colour.go

DESCRIPTION
  colour.go provides conversion of RGB pixels to the luma and chroma values
  sent by the Robot modes and the mapping of those values to tone frequencies.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sstv

import "fmt"

// Scan frequency range in Hz.
const (
	BlackFreq = 1500.0
	WhiteFreq = 2300.0
)

// Pixel is a packed 0xRRGGBB colour.
type Pixel uint32

// RGB returns the Pixel with the given components.
func RGB(r, g, b uint8) Pixel {
	return Pixel(r)<<16 | Pixel(g)<<8 | Pixel(b)
}

// Components returns the red, green and blue components of p.
func (p Pixel) Components() (r, g, b uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p)
}

func (p Pixel) rgb() (r, g, b float64) {
	ri, gi, bi := p.Components()
	return float64(ri), float64(gi), float64(bi)
}

// Luma returns the Y value of p.
func Luma(p Pixel) float64 {
	r, g, b := p.rgb()
	return 16 + 0.003906*(65.738*r+129.057*g+25.064*b)
}

// ChromaRY returns the R-Y value of p.
func ChromaRY(p Pixel) float64 {
	r, g, b := p.rgb()
	return 128 + 0.003906*(112.439*r-94.154*g-18.285*b)
}

// ChromaBY returns the B-Y value of p.
func ChromaBY(p Pixel) float64 {
	r, g, b := p.rgb()
	return 128 + 0.003906*(-37.945*r-74.494*g+112.439*b)
}

// Frequency maps a channel value in [0, 255] to its scan frequency.
// Results are clamped to [BlackFreq, WhiteFreq].
func Frequency(v float64) float64 {
	f := BlackFreq + v*(WhiteFreq-BlackFreq)/255
	switch {
	case f < BlackFreq:
		return BlackFreq
	case f > WhiteFreq:
		return WhiteFreq
	}
	return f
}

// channel returns the value of p carried by scan tones of kind k.
func channel(k Kind, p Pixel) float64 {
	switch k {
	case ScanLuma:
		return Luma(p)
	case ScanChromaRY:
		return ChromaRY(p)
	case ScanChromaBY:
		return ChromaBY(p)
	default:
		panic(fmt.Sprintf("sstv: %v is not a scan kind", k))
	}
}
