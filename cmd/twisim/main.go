// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// twisim runs an EasyDMA master against an EasyDMA slave on a simulated bus
// and prints what the hardware saw.
//
// The slave is a register file: a write selects a register and stores the
// bytes after it, a read returns bytes from the selected register on. With
// -pec every payload carries an SMBus packet error code that the slave
// checks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/GermanBionicSystems/nrfx/prs"
	"github.com/GermanBionicSystems/nrfx/timeline"
	"github.com/GermanBionicSystems/nrfx/tracecon"
	"github.com/GermanBionicSystems/nrfx/twim"
	"github.com/mattn/go-tty"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	addr := flag.Uint("a", 0x42, "slave address")
	n := flag.Int("n", 4, "number of write/read rounds")
	freq := physic.Frequency(0)
	flag.Var(&freq, "f", "bus frequency (100kHz, 250kHz or 400kHz)")
	pec := flag.Bool("pec", false, "append an SMBus PEC byte to every write")
	pngPath := flag.String("png", "", "also render the trace to this PNG file")
	step := flag.Bool("step", false, "wait for a key press between trace records")
	verbose := flag.Bool("v", false, "log driver activity")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *n < 1 || *n > 16 {
		return errors.New("-n must be between 1 and 16")
	}
	if *addr == 0 || *addr > 0x7f {
		return fmt.Errorf("invalid address %#x", *addr)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.Lmicroseconds)
	}
	if _, err := host.Init(); err != nil {
		return err
	}

	var trace nrftest.Trace
	slaveHW := nrftest.NewTWIS("TWIS1", prs.NewBox("PRS1"))
	slaveHW.SetTrace(&trace)
	masterHW := nrftest.NewTWIM("TWIM0", slaveHW, prs.NewBox("PRS0"))
	masterHW.Async = true
	masterHW.SetTrace(&trace)

	s, err := newSlave(slaveHW, uint16(*addr), *pec, logger)
	if err != nil {
		return err
	}
	defer s.close()

	m := twim.New(masterHW)
	mo := twim.DefaultOpts
	mo.SCL = &gpiotest.Pin{N: "P0.27", Num: 27}
	mo.SDA = &gpiotest.Pin{N: "P0.26", Num: 26}
	if freq != 0 {
		mo.Frequency = freq
	}
	mo.Logger = logger
	if err := m.Init(&mo, func(e twim.Event) { logger.Printf("master: %s", e) }); err != nil {
		return err
	}
	if err := m.Enable(); err != nil {
		return err
	}
	if err := m.Register("TWIM0", 0); err != nil {
		return err
	}
	bus, err := i2creg.Open("TWIM0")
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := run(&i2c.Dev{Bus: bus, Addr: uint16(*addr)}, *n, *pec); err != nil {
		return err
	}
	if errs := s.dev.ErrorGetAndClear(); errs != 0 {
		log.Printf("slave errors: %s", errs)
	}
	if bad := s.badPEC(); bad != 0 {
		log.Printf("slave dropped %d writes with a bad PEC", bad)
	}

	if err := printTrace(trace.Records(), *step); err != nil {
		return err
	}
	if *pngPath != "" {
		f, err := os.Create(*pngPath)
		if err != nil {
			return err
		}
		if err := timeline.WritePNG(f, trace.Records(), nil); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func printTrace(recs []nrftest.Record, step bool) error {
	p := tracecon.New(nil)
	defer p.Halt()
	if !step {
		return p.Print(recs)
	}
	t, err := tty.Open()
	if err != nil {
		return err
	}
	defer t.Close()
	for _, r := range recs {
		if err := p.Record(r); err != nil {
			return err
		}
		c, err := t.ReadRune()
		if err != nil {
			return err
		}
		if c == 'q' {
			return nil
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "twisim: %s.\n", err)
		os.Exit(1)
	}
}
