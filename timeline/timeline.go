// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package timeline draws a recorded bus trace as an image.
//
// Every simulated block gets a horizontal lane. Records are laid out left to
// right in sequence order: tasks are blue boxes, events are yellow ticks
// (red for ERROR) and bus transactions are green bars labeled with their
// address and data.
package timeline

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Opts represents the layout options.
type Opts struct {
	// Column is the width of one record, in pixels.
	Column int
	// Lane is the height of one block lane, in pixels.
	Lane int
	// FontSize is in points.
	FontSize float64

	_ struct{}
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Column:   72,
	Lane:     64,
	FontSize: 10,
}

const margin = 80

// Render draws recs.
func Render(recs []nrftest.Record, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Column <= 0 || opts.Lane <= 0 || opts.FontSize <= 0 {
		return nil, errors.New("timeline: invalid layout")
	}
	if len(recs) == 0 {
		return nil, errors.New("timeline: empty trace")
	}
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	var lanes []string
	lane := map[string]int{}
	for _, r := range recs {
		if _, ok := lane[r.Block]; !ok {
			lane[r.Block] = len(lanes)
			lanes = append(lanes, r.Block)
		}
	}

	col, row := float64(opts.Column), float64(opts.Lane)
	w := margin + len(recs)*opts.Column
	h := margin/2 + len(lanes)*opts.Lane
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: opts.FontSize}))

	// Lanes.
	for i, name := range lanes {
		y := margin/2 + float64(i)*row
		dc.SetRGB(0.92, 0.92, 0.92)
		if i%2 == 1 {
			dc.DrawRectangle(0, y, float64(w), row)
			dc.Fill()
		}
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(name, 8, y+row/2, 0, 0.5)
	}
	// Sequence ruler.
	dc.SetRGB(0.4, 0.4, 0.4)
	for i, r := range recs {
		x := margin + float64(i)*col
		dc.DrawStringAnchored(fmt.Sprint(r.Seq), x+col/2, margin/4, 0.5, 0.5)
	}

	for i, r := range recs {
		x := margin + float64(i)*col
		y := margin/2 + float64(lane[r.Block])*row
		drawRecord(dc, r, x, y, col, row)
	}
	return dc.Image(), nil
}

// WritePNG draws recs and encodes the result as PNG.
func WritePNG(w io.Writer, recs []nrftest.Record, opts *Opts) error {
	img, err := Render(recs, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

func drawRecord(dc *gg.Context, r nrftest.Record, x, y, col, row float64) {
	const pad = 4
	mid := y + row/2
	switch r.Kind {
	case nrftest.KindTask:
		dc.SetRGB(0.19, 0.38, 0.88)
		dc.DrawRoundedRectangle(x+pad, y+pad, col-2*pad, row/2-pad, 4)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(r.Name, x+col/2, y+row/4+pad/2, 0.5, 0.5)
	case nrftest.KindEvent:
		dc.SetRGB(0.88, 0.75, 0.13)
		if strings.Contains(r.Name, "ERROR") {
			dc.SetRGB(0.88, 0.13, 0.13)
		}
		dc.SetLineWidth(3)
		dc.DrawLine(x+col/2, mid, x+col/2, y+row-pad)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		for j, part := range strings.Split(r.Name, "|") {
			dc.DrawStringAnchored(part, x+col/2, mid-pad-float64(j)*dc.FontHeight(), 0.5, 0)
		}
	case nrftest.KindBus:
		dc.SetRGB(0.13, 0.75, 0.25)
		if r.Err != nil {
			dc.SetRGB(0.88, 0.13, 0.13)
		}
		dc.DrawRectangle(x, mid, col, row/2-pad)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(busLabel(r), x+col/2, mid+row/4, 0.5, 0.5)
	}
}

func busLabel(r nrftest.Record) string {
	if r.Err != nil {
		return fmt.Sprintf("0x%02x NACK", r.Addr)
	}
	return fmt.Sprintf("0x%02x %dW %dR", r.Addr, len(r.W), len(r.R))
}
