// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/common"
	"periph.io/x/conn/v3/i2c"
)

// run writes n samples, each one two bytes followed by their CRC8, then
// reads them back and checks the CRC.
func run(d *i2c.Dev, n int, pec bool) error {
	for i := 0; i < n; i++ {
		reg := byte(4 * i)
		v := uint16(0x1234 + 0x111*i)
		w := []byte{reg, byte(v >> 8), byte(v)}
		w = append(w, common.CRC8(w[1:]))
		if pec {
			w = append(w, common.PEC([]byte{common.AddressByte(d.Addr, false)}, w))
		}
		if err := d.Tx(w, nil); err != nil {
			return fmt.Errorf("write #%d: %w", i, err)
		}
		r := make([]byte, 3)
		if err := d.Tx([]byte{reg}, r); err != nil {
			return fmt.Errorf("read #%d: %w", i, err)
		}
		if common.CRC8(r[:2]) != r[2] {
			return fmt.Errorf("read #%d: bad CRC in % x", i, r)
		}
		if got := uint16(r[0])<<8 | uint16(r[1]); got != v {
			return fmt.Errorf("read #%d: got %#04x, want %#04x", i, got, v)
		}
		fmt.Printf("%#02x: %#04x\n", reg, v)
	}
	return nil
}
