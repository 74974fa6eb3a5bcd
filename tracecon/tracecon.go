// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tracecon prints recorded bus traces to a terminal using ANSI
// color codes.
//
// Each record gets a colored block for its kind, and bus transactions show
// their data bytes as a strip of gray blocks next to the hex dump, so a
// glance is enough to spot a stuck 0xFF or an all-zero read.
package tracecon

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3"
)

// Opts represents the options available for the printer.
type Opts struct {
	// Color forces color on or off. When nil, color is used if the output
	// is a terminal.
	Color   *bool
	Palette *ansi256.Palette

	_ struct{}
}

// Printer writes trace records, one line each.
type Printer struct {
	w       io.Writer
	color   bool
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a Printer that writes to stdout.
func New(opts *Opts) *Printer {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return newPrinter(colorable.NewColorableStdout(), tty, opts)
}

// NewWriter returns a Printer that writes to w. Color is off unless
// opts.Color enables it.
func NewWriter(w io.Writer, opts *Opts) *Printer {
	return newPrinter(w, false, opts)
}

func newPrinter(w io.Writer, tty bool, opts *Opts) *Printer {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	c := tty
	if opts.Color != nil {
		c = *opts.Color
	}
	if !c {
		w = colorable.NewNonColorable(w)
	}
	return &Printer{w: w, color: c, palette: *p}
}

func (p *Printer) String() string {
	return "tracecon"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (p *Printer) Halt() error {
	if !p.color {
		return nil
	}
	_, err := io.WriteString(p.w, "\033[0m")
	return err
}

// Print writes every record.
func (p *Printer) Print(recs []nrftest.Record) error {
	for _, r := range recs {
		if err := p.Record(r); err != nil {
			return err
		}
	}
	return nil
}

// Record writes a single record.
func (p *Printer) Record(r nrftest.Record) error {
	p.buf.Reset()
	p.block(kindColor(r))
	fmt.Fprintf(&p.buf, " %4d %-6s ", r.Seq, r.Block)
	switch r.Kind {
	case nrftest.KindBus:
		fmt.Fprintf(&p.buf, "0x%02x", r.Addr)
		p.data(" W:", r.W)
		p.data(" R:", r.R)
		if r.Err != nil {
			_, _ = p.buf.WriteString(" ")
			p.block(red)
			_, _ = p.buf.WriteString(" " + r.Err.Error())
		}
	default:
		fmt.Fprintf(&p.buf, "%-5s %s", r.Kind, r.Name)
	}
	_, _ = p.buf.WriteString("\n")
	_, err := p.buf.WriteTo(p.w)
	return err
}

func (p *Printer) data(label string, b []byte) {
	if b == nil {
		return
	}
	_, _ = p.buf.WriteString(label)
	for _, v := range b {
		p.block(color.NRGBA{R: v, G: v, B: v, A: 0xff})
	}
	fmt.Fprintf(&p.buf, " % x", b)
}

// block writes a colored cell. Without color it writes nothing, so the
// columns still line up with the plain Record.String output.
func (p *Printer) block(c color.NRGBA) {
	if !p.color {
		return
	}
	_, _ = p.buf.WriteString(p.palette.Block(c))
	_, _ = p.buf.WriteString("\033[0m")
}

var (
	red    = color.NRGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	green  = color.NRGBA{R: 0x20, G: 0xc0, B: 0x40, A: 0xff}
	blue   = color.NRGBA{R: 0x30, G: 0x60, B: 0xe0, A: 0xff}
	yellow = color.NRGBA{R: 0xe0, G: 0xc0, B: 0x20, A: 0xff}
)

func kindColor(r nrftest.Record) color.NRGBA {
	switch r.Kind {
	case nrftest.KindTask:
		return blue
	case nrftest.KindBus:
		if r.Err != nil {
			return red
		}
		return green
	}
	if strings.Contains(r.Name, "ERROR") {
		return red
	}
	return yellow
}

var _ conn.Resource = &Printer{}
