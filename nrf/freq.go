// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrf

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/common"
	"periph.io/x/conn/v3/physic"
)

// Frequency is the FREQUENCY register value.
type Frequency uint32

// FREQUENCY register values.
const (
	FrequencyOff  Frequency = 0
	Frequency100K Frequency = 0x01980000
	Frequency250K Frequency = 0x04000000
	Frequency400K Frequency = 0x06400000
)

// FrequencyFor maps a bus clock to the register value. Only the three
// clocks the hardware implements are accepted.
func FrequencyFor(f physic.Frequency) (Frequency, error) {
	switch f {
	case 100 * physic.KiloHertz:
		return Frequency100K, nil
	case 250 * physic.KiloHertz:
		return Frequency250K, nil
	case 400 * physic.KiloHertz:
		return Frequency400K, nil
	}
	return FrequencyOff, fmt.Errorf("%w: unsupported bus frequency %s; use 100kHz, 250kHz or 400kHz", common.ErrInvalidParam, f)
}

// Hz returns the bus clock for a register value.
func (f Frequency) Hz() physic.Frequency {
	switch f {
	case Frequency100K:
		return 100 * physic.KiloHertz
	case Frequency250K:
		return 250 * physic.KiloHertz
	case Frequency400K:
		return 400 * physic.KiloHertz
	}
	return 0
}

func (f Frequency) String() string {
	if f == FrequencyOff {
		return "off"
	}
	return f.Hz().String()
}
