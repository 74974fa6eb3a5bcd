// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"bytes"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GermanBionicSystems/nrfx/nrf"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestMem(t *testing.T) {
	m := NewMem(0x50)
	if err := m.Tx(0x50, []byte{0xfe, 1, 2, 3}, nil); err != nil {
		t.Fatal(err)
	}
	// The pointer wraps.
	if got := m.Dump(0xfe, 3); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
	r := make([]byte, 2)
	if err := m.Tx(0x50, []byte{0xff}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{2, 3}) {
		t.Fatalf("got %v", r)
	}
	if err := m.Tx(0x51, nil, r); !errors.Is(err, ErrAddrNack) {
		t.Fatal(err)
	}
	m.NackAfter = 2
	if err := m.Tx(0x50, []byte{0, 9}, nil); !errors.Is(err, ErrDataNack) {
		t.Fatal(err)
	}
	want := []string{"W 0xfe", "W 0xff", "R 0xff", "W 0x00"}
	if got := m.Log(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %q", got)
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	ram := make([]byte, 8)
	flash := m.Flash(make([]byte, 8))
	if !m.InRAM(ram) || m.InRAM(flash) || m.InRAM(flash[4:]) {
		t.Fatal("wrong memory map")
	}
	if !m.InRAM(nil) {
		t.Fatal("empty buffers are always fine")
	}
	if !nrf.AllRAM.InRAM(flash) {
		t.Fatal("AllRAM")
	}
}

func TestInterrupt(t *testing.T) {
	var pending atomic.Int32
	i := NewInterrupt(func() bool { return pending.Load() != 0 })
	ch := make(chan struct{}, 10)
	i.SetHandler(func() {
		pending.Add(-1)
		ch <- struct{}{}
	})
	pending.Store(1)
	i.Kick()
	select {
	case <-ch:
		t.Fatal("disabled line ran its handler")
	case <-time.After(10 * time.Millisecond):
	}
	// Enable delivers what is already pending.
	i.Enable()
	<-ch
	pending.Store(3)
	i.Kick()
	for n := 0; n < 3; n++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("got %d calls", n)
		}
	}
	// Calls is updated once the handler returns.
	for end := time.Now().Add(time.Second); i.Calls() != 4; {
		if time.Now().After(end) {
			t.Fatalf("got %d calls", i.Calls())
		}
		time.Sleep(time.Millisecond)
	}
	i.SetPriority(3)
	if i.Priority() != 3 {
		t.Fatal(i.Priority())
	}
}

func TestTWIM(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: 0x23, W: []byte{0x10}, R: []byte{0xaa, 0xbb}}},
	}
	hw := NewTWIM("TWIM0", bus, nil)
	var tr Trace
	hw.SetTrace(&tr)
	hw.Enable()
	hw.SetFrequency(nrf.Frequency100K)
	hw.SetAddress(0x23)
	hw.SetTxBuffer([]byte{0x10})
	r := make([]byte, 2)
	hw.SetRxBuffer(r)
	hw.SetShorts(nrf.ShortLastTxStartRx | nrf.ShortLastRxStop)
	hw.Trigger(nrf.TaskStartTX)
	want := nrf.EventTxStarted | nrf.EventLastTx | nrf.EventRxStarted | nrf.EventLastRx | nrf.EventStopped
	if got := hw.Events(); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if hw.TxAmount() != 1 || hw.RxAmount() != 2 || !bytes.Equal(r, []byte{0xaa, 0xbb}) {
		t.Fatalf("got %d %d %v", hw.TxAmount(), hw.RxAmount(), r)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	recs := tr.Records()
	if len(recs) == 0 || recs[0].Kind != KindTask || recs[0].Name != "STARTTX" {
		t.Fatalf("got %v", recs)
	}
	var sawBus bool
	for _, r := range recs {
		if r.Kind == KindBus {
			sawBus = true
			if !strings.Contains(r.String(), "bus 0x23 W:10 R:aa bb") {
				t.Fatalf("got %q", r.String())
			}
		}
	}
	if !sawBus {
		t.Fatal("no bus record")
	}
	tr.Reset()
	if len(tr.Records()) != 0 {
		t.Fatal("Reset")
	}
}

func TestTWIM_Nack(t *testing.T) {
	hw := NewTWIM("TWIM0", NewMem(0x50), nil)
	hw.Enable()
	hw.SetFrequency(nrf.Frequency100K)
	hw.SetAddress(0x51)
	hw.SetTxBuffer([]byte{0})
	hw.SetShorts(nrf.ShortLastTxStop)
	hw.Trigger(nrf.TaskStartTX)
	if !hw.Check(nrf.EventError) || hw.Check(nrf.EventStopped) {
		t.Fatalf("got %s", hw.Events())
	}
	if hw.ErrorSrc() != nrf.ErrorAddressNack {
		t.Fatal("ERRORSRC")
	}
	hw.Trigger(nrf.TaskStop)
	if !hw.Check(nrf.EventStopped) {
		t.Fatal("STOP ignored")
	}
}

func TestTWI(t *testing.T) {
	m := NewMem(0x50)
	m.Load(0x20, []byte{7, 8})
	hw := NewTWI("TWI0", m, nil)
	hw.Enable()
	hw.SetAddress(0x50)
	hw.Trigger(nrf.TaskStartTX)
	hw.WriteTXD(0x20)
	if !hw.Check(nrf.EventTxdSent) {
		t.Fatal("TXDSENT")
	}
	hw.Clear(nrf.AllEvents)
	hw.SetShorts(nrf.ShortBBSuspend)
	hw.Trigger(nrf.TaskStartRX)
	if !hw.Check(nrf.EventRxdReady) || hw.ReadRXD() != 7 {
		t.Fatal("first byte")
	}
	hw.Clear(nrf.AllEvents)
	hw.SetShorts(nrf.ShortBBStop)
	hw.Trigger(nrf.TaskResume)
	if hw.ReadRXD() != 8 || !hw.Check(nrf.EventStopped) {
		t.Fatalf("got %s", hw.Events())
	}
}

func TestTWI_Overrun(t *testing.T) {
	hw := NewTWI("TWI0", NewMem(0x50), nil)
	hw.Enable()
	hw.SetAddress(0x50)
	hw.SetShorts(nrf.ShortBBSuspend)
	hw.Trigger(nrf.TaskStartRX)
	// RXDREADY is left set.
	hw.Trigger(nrf.TaskResume)
	if hw.ErrorSrc() != nrf.ErrorOverrun {
		t.Fatal("no overrun")
	}
}

func TestKind_String(t *testing.T) {
	if KindTask.String() != "task" || Kind(9).String() != "Kind(9)" {
		t.Fatal("Kind.String")
	}
}
