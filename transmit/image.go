/*
NAME
  image.go

DESCRIPTION
  image.go provides conversion of images to lines of pixels for a mode, and
  the test pattern.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package transmit

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/ausocean/sstv/codec/sstv"
)

// Lines returns the rows of img scaled to the picture size of m.
func Lines(img image.Image, m sstv.Mode) [][]sstv.Pixel {
	dst := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	if img.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	lines := make([][]sstv.Pixel, m.Height)
	for y := range lines {
		lines[y] = make([]sstv.Pixel, m.Width)
		for x := range lines[y] {
			c := dst.RGBAAt(x, y)
			lines[y][x] = sstv.RGB(c.R, c.G, c.B)
		}
	}
	return lines
}

// DecodeFile decodes a PNG, JPEG or BMP image file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	return img, nil
}

// Bar colours of the test pattern, left to right.
var bars = []color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
	{0, 0, 0, 255},
}

// ColourBars returns a w by h image of eight vertical colour bars above a
// grey ramp filling the bottom quarter.
func ColourBars(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	ramp := h - h/4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y >= ramp {
				v := uint8(x * 255 / max(w-1, 1))
				img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
				continue
			}
			img.SetRGBA(x, y, bars[x*len(bars)/w])
		}
	}
	return img
}
