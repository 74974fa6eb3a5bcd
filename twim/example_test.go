// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/GermanBionicSystems/nrfx/twim"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// On a board the block comes from the register map; here a simulated
	// one talks to a register file device at 0x48.
	mem := nrftest.NewMem(0x48)
	mem.Load(0x00, []byte{0x19, 0x80})
	d := twim.New(nrftest.NewTWIM("TWIM0", mem, nil))
	o := twim.DefaultOpts
	o.SCL = &gpiotest.Pin{N: "P0.27", Num: 27}
	o.SDA = &gpiotest.Pin{N: "P0.26", Num: 26}
	if err := d.Init(&o, nil); err != nil {
		log.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		log.Fatal(err)
	}
	if err := d.Register("TWIM0", 0); err != nil {
		log.Fatal(err)
	}

	// Any periph driver can now use the bus.
	b, err := i2creg.Open("TWIM0")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer b.Close()

	dev := i2c.Dev{Bus: b, Addr: 0x48}
	r := make([]byte, 2)
	if err := dev.Tx([]byte{0x00}, r); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%#02x %#02x\n", r[0], r[1])
}
