// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim

import "github.com/GermanBionicSystems/nrfx/nrf"

// Quirk works around a silicon erratum around the start of a transfer. It
// is only used in interrupt mode.
type Quirk interface {
	// BeforeStart runs right before start is triggered. It returns extra
	// interrupts to enable.
	BeforeStart(hw nrf.TWIM, start nrf.Task) nrf.Event
	// IRQ runs first in the interrupt handler. It returns true when it
	// consumed the interrupt.
	IRQ(hw nrf.TWIM, freq nrf.Frequency) bool
}

// Anomaly109 is the nRF52832 erratum 109 workaround: EasyDMA may corrupt RAM
// when the first TX byte is fetched while the CPU accesses the same RAM
// block.
//
// Transmissions start with FREQUENCY set to 0. When TXSTARTED fires the
// block is reset, the frequency restored and STARTTX triggered again.
type Anomaly109 struct{}

// BeforeStart implements Quirk.
func (Anomaly109) BeforeStart(hw nrf.TWIM, start nrf.Task) nrf.Event {
	if start != nrf.TaskStartTX {
		return 0
	}
	hw.SetFrequency(nrf.FrequencyOff)
	hw.Clear(nrf.EventTxStarted)
	return nrf.EventTxStarted
}

// IRQ implements Quirk.
func (Anomaly109) IRQ(hw nrf.TWIM, freq nrf.Frequency) bool {
	if !hw.Check(nrf.EventTxStarted) {
		return false
	}
	hw.Clear(nrf.EventTxStarted)
	hw.DisableInt(nrf.EventTxStarted)
	if hw.Frequency() != nrf.FrequencyOff {
		return false
	}
	// Toggling ENABLE resets the internal state.
	hw.Disable()
	hw.Enable()
	hw.SetFrequency(freq)
	hw.Trigger(nrf.TaskStartTX)
	return true
}

var _ Quirk = Anomaly109{}
