// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"sync"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/GermanBionicSystems/nrfx/twis"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// slave is a register file served from the TWIS interrupt.
type slave struct {
	dev  *twis.Dev
	addr uint16
	pec  bool
	log  common.Logger

	mu   sync.Mutex
	regs [64]byte
	ptr  int
	rx   [16]byte
	bad  int
}

func newSlave(hw *nrftest.TWIS, addr uint16, pec bool, l common.Logger) (*slave, error) {
	s := &slave{dev: twis.New(hw), addr: addr, pec: pec, log: l}
	o := twis.DefaultOpts
	o.SCL = &gpiotest.Pin{N: "P0.03", Num: 3}
	o.SDA = &gpiotest.Pin{N: "P0.04", Num: 4}
	o.Addr = [2]uint16{addr}
	o.Logger = l
	if err := s.dev.Init(&o, s.handle); err != nil {
		return nil, err
	}
	if err := s.dev.Enable(); err != nil {
		_ = s.dev.Uninit()
		return nil, err
	}
	return s, nil
}

func (s *slave) close() {
	_ = s.dev.Uninit()
}

func (s *slave) handle(e twis.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Type {
	case twis.EventWriteRequested:
		if e.NeedsBuffer {
			_ = s.dev.RxPrepare(s.rx[:])
		}
	case twis.EventWriteDone:
		s.store(s.rx[:e.RxAmount])
	case twis.EventReadRequested:
		if e.NeedsBuffer {
			_ = s.dev.TxPrepare(s.regs[s.ptr:])
		}
	case twis.EventReadError, twis.EventWriteError, twis.EventGeneralError:
		s.log.Printf("slave: %s", e)
	}
}

// store handles a write: register byte, payload, then the PEC byte when
// enabled. Payloads with a bad PEC are dropped.
func (s *slave) store(b []byte) {
	if len(b) == 0 {
		return
	}
	if s.pec && len(b) > 1 {
		body, got := b[:len(b)-1], b[len(b)-1]
		if want := common.PEC([]byte{common.AddressByte(s.addr, false)}, body); got != want {
			s.bad++
			s.log.Printf("slave: bad PEC %#02x, want %#02x", got, want)
			return
		}
		b = body
	}
	s.ptr = int(b[0]) % len(s.regs)
	copy(s.regs[s.ptr:], b[1:])
}

func (s *slave) badPEC() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bad
}
