// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
	"github.com/GermanBionicSystems/nrfx/nrf/nrftest"
	"github.com/GermanBionicSystems/nrfx/prs"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestLifecycle(t *testing.T) {
	hw := nrftest.NewTWIM("TWIM0", &i2ctest.Playback{DontPanic: true}, nil)
	d := New(hw)
	o := testOpts()
	o.Frequency = 400 * physic.KiloHertz
	for i := 0; i < 2; i++ {
		if err := d.Init(&o, nil); err != nil {
			t.Fatal(err)
		}
		if err := d.Init(&o, nil); !errors.Is(err, common.ErrInvalidState) {
			t.Fatal(err)
		}
		if hw.Frequency() != nrf.Frequency400K {
			t.Fatalf("frequency %s", hw.Frequency())
		}
		if err := d.Read(0x10, make([]byte, 1)); !errors.Is(err, common.ErrInvalidState) {
			t.Fatal(err)
		}
		if err := d.Disable(); !errors.Is(err, common.ErrInvalidState) {
			t.Fatal(err)
		}
		if err := d.Enable(); err != nil {
			t.Fatal(err)
		}
		if err := d.Uninit(); err != nil {
			t.Fatal(err)
		}
		if hw.Enabled() {
			t.Fatal("still enabled")
		}
	}
	if n := len(hw.Tasks()); n != 0 {
		t.Fatalf("%d tasks triggered", n)
	}
}

func TestXfer_Blocking(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x48, W: []byte{0x10, 1, 2}},
			{Addr: 0x48, W: []byte{0x10}, R: []byte{1, 2, 3, 4}},
			{Addr: 0x48, R: []byte{5, 6}},
			{Addr: 0x48},
		},
		DontPanic: true,
	}
	d, _ := newDev(t, pb, nil)
	if err := d.Write(0x48, []byte{0x10, 1, 2}, false); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 4)
	if err := d.Xfer(common.XferTxRx(0x48, []byte{0x10}, r), 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v", r)
	}
	r = make([]byte, 2)
	if err := d.Read(0x48, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{5, 6}) {
		t.Fatalf("got %v", r)
	}
	if err := d.Tx(0x48, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
	if d.IsBusy() {
		t.Fatal("busy")
	}
}

func TestXfer_NoStop(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	mem.Load(0x20, []byte{7, 8})
	d, hw := newDev(t, mem, nil)
	if err := d.Write(0x48, []byte{0x20}, true); err != nil {
		t.Fatal(err)
	}
	if hw.Check(nrf.EventStopped) {
		t.Fatal("bus stopped")
	}
	r := make([]byte, 2)
	if err := d.Read(0x48, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{7, 8}) {
		t.Fatalf("got %v", r)
	}
}

func TestXfer_Rejected(t *testing.T) {
	var mem nrftest.Memory
	flash := mem.Flash(make([]byte, 4))
	data := []struct {
		name  string
		x     common.Xfer
		flags common.Flags
		want  error
	}{
		{"empty", common.XferTx(0x48, []byte{}), 0, common.ErrInvalidParam},
		{"flash", common.XferTx(0x48, flash), 0, common.ErrInvalidAddr},
		{"flash tail", common.XferTxRx(0x48, []byte{1}, flash[2:]), 0, common.ErrInvalidAddr},
		{"too long", common.XferRx(0x48, make([]byte, 9)), 0, common.ErrInvalidLength},
		{"txtx", common.XferTxTx(0x48, []byte{1}, []byte{2}), 0, common.ErrNotSupported},
		{"hold", common.XferTx(0x48, []byte{1}), common.HoldXfer, common.ErrNotSupported},
		{"repeated", common.XferTx(0x48, []byte{1}), common.RepeatedXfer, common.ErrNotSupported},
		{"unknown flag", common.XferTx(0x48, []byte{1}), 1 << 20, common.ErrNotSupported},
	}
	hw := nrftest.NewTWIM("TWIM0", &i2ctest.Playback{DontPanic: true}, nil)
	hw.SetMemory(&mem)
	hw.SetMaxCount(8)
	d := New(hw)
	o := testOpts()
	if err := d.Init(&o, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	defer d.Uninit()
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			if err := d.Xfer(line.x, line.flags); !errors.Is(err, line.want) {
				t.Fatalf("got %v, want %v", err, line.want)
			}
		})
	}
	if n := len(hw.Tasks()); n != 0 {
		t.Fatalf("%d tasks triggered", n)
	}
}

func TestXfer_Nack(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	mem.NackAfter = 2
	d, _ := newDev(t, mem, nil)
	if err := d.Write(0x49, []byte{1}, false); !errors.Is(err, common.ErrAddressNack) {
		t.Fatal(err)
	}
	if err := d.Write(0x48, []byte{1, 2, 3}, false); !errors.Is(err, common.ErrDataNack) {
		t.Fatal(err)
	}
	// A NACK with TxNoStop still stops the bus.
	if err := d.Write(0x49, []byte{1}, true); !errors.Is(err, common.ErrAddressNack) {
		t.Fatal(err)
	}
	if d.IsBusy() {
		t.Fatal("busy")
	}
}

func TestXfer_Timeout(t *testing.T) {
	hw := nrftest.NewTWIM("TWIM0", nrftest.NewMem(0x48), nil)
	hw.Hang = true
	d := New(hw)
	o := testOpts()
	o.Timeout = time.Millisecond
	o.Clock = &nrftest.Clock{}
	if err := d.Init(&o, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(0x48, []byte{1}, false); !errors.Is(err, common.ErrInternal) {
		t.Fatal(err)
	}
	if hw.Resets() != 1 {
		t.Fatalf("reset %d times", hw.Resets())
	}
}

func TestInterrupt_TxRx(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x48, W: []byte{0x10}, R: []byte{1, 2, 3, 4}}},
		DontPanic: true,
	}
	ch := make(chan Event, 4)
	var d *Dev
	busy := make(chan bool, 4)
	d, _ = newDev(t, pb, func(e Event) {
		busy <- d.IsBusy()
		ch <- e
	})
	r := make([]byte, 4)
	if err := d.Xfer(common.XferTxRx(0x48, []byte{0x10}, r), 0); err != nil {
		t.Fatal(err)
	}
	e := waitEvent(t, ch)
	if e.Type != EventDone || e.TxAmount != 1 || e.RxAmount != 4 {
		t.Fatalf("got %s", e)
	}
	if <-busy {
		t.Fatal("busy while the handler runs")
	}
	if !bytes.Equal(r, []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v", r)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected %s", e)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestInterrupt_TxTx(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	rec := &i2ctest.Record{Bus: mem}
	ch := make(chan Event, 4)
	d, _ := newDev(t, rec, func(e Event) { ch <- e })
	if err := d.Xfer(common.XferTxTx(0x48, []byte{0x30, 1}, []byte{0x31, 2, 3}), 0); err != nil {
		t.Fatal(err)
	}
	e := waitEvent(t, ch)
	if e.Type != EventDone || e.TxAmount != 5 {
		t.Fatalf("got %s", e)
	}
	if len(rec.Ops) != 2 || !bytes.Equal(rec.Ops[0].W, []byte{0x30, 1}) || !bytes.Equal(rec.Ops[1].W, []byte{0x31, 2, 3}) {
		t.Fatalf("got %#v", rec.Ops)
	}
}

func TestInterrupt_TxTxNack(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	rec := &i2ctest.Record{Bus: mem}
	ch := make(chan Event, 4)
	d, _ := newDev(t, rec, func(e Event) { ch <- e })
	if err := d.Xfer(common.XferTxTx(0x50, []byte{1, 2, 3}, []byte{4, 5}), 0); err != nil {
		t.Fatal(err)
	}
	e := waitEvent(t, ch)
	if e.Type != EventAddressNack || e.TxAmount != 0 || e.RxAmount != 0 {
		t.Fatalf("got %s tx=%d rx=%d", e, e.TxAmount, e.RxAmount)
	}
	// The second buffer is never sent.
	for _, op := range rec.Ops {
		if bytes.Equal(op.W, []byte{4, 5}) {
			t.Fatalf("got %#v", rec.Ops)
		}
	}
	// The next transfer is counted from scratch.
	if err := d.Xfer(common.XferTxTx(0x48, []byte{0x30, 1}, []byte{0x31, 2, 3}), 0); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, ch); e.Type != EventDone || e.TxAmount != 5 {
		t.Fatalf("got %s", e)
	}
}

func TestInterrupt_Nack(t *testing.T) {
	ch := make(chan Event, 4)
	d, _ := newDev(t, nrftest.NewMem(0x48), func(e Event) { ch <- e })
	for _, flags := range []common.Flags{0, common.NoXferEvtHandler} {
		if err := d.Xfer(common.XferTxRx(0x50, []byte{0}, make([]byte, 2)), flags); err != nil {
			t.Fatal(err)
		}
		if e := waitEvent(t, ch); e.Type != EventAddressNack {
			t.Fatalf("got %s", e)
		}
	}
}

func TestInterrupt_NoXferEvtHandler(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	ch := make(chan Event, 4)
	d, hw := newDev(t, mem, func(e Event) { ch <- e })
	if err := d.Xfer(common.XferTx(0x48, []byte{0x40, 9}), common.NoXferEvtHandler); err != nil {
		t.Fatal(err)
	}
	if d.IsBusy() {
		t.Fatal("NoXferEvtHandler marked the instance busy")
	}
	waitFor(t, func() bool { return hw.IntEnabled() == 0 })
	if len(ch) != 0 {
		t.Fatal("success was reported")
	}
	if got := mem.Dump(0x40, 1); got[0] != 9 {
		t.Fatalf("got %v", got)
	}
}

func TestInterrupt_Hold(t *testing.T) {
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{{Addr: 0x48, R: []byte{0xaa}}}, DontPanic: true}
	ch := make(chan Event, 4)
	d, hw := newDev(t, pb, func(e Event) { ch <- e })
	r := make([]byte, 1)
	if err := d.Xfer(common.XferRx(0x48, r), common.HoldXfer); err != nil {
		t.Fatal(err)
	}
	for _, task := range hw.Tasks() {
		if task == nrf.TaskStartRX {
			t.Fatal("started")
		}
	}
	if d.StartTask() != nrf.TaskStartRX {
		t.Fatalf("start task %s", d.StartTask())
	}
	if !d.IsBusy() {
		t.Fatal("not busy")
	}
	if err := d.Read(0x48, r); !errors.Is(err, common.ErrBusy) {
		t.Fatal(err)
	}
	// What a PPI channel would do.
	hw.Trigger(d.StartTask())
	if e := waitEvent(t, ch); e.Type != EventDone || r[0] != 0xaa {
		t.Fatalf("got %s %v", e, r)
	}
}

func TestInterrupt_Repeated(t *testing.T) {
	io := i2ctest.IO{Addr: 0x48, W: []byte{0x01}, R: []byte{0x55}}
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{io, io, io}, DontPanic: true}
	ch := make(chan Event, 4)
	d, hw := newDev(t, pb, func(e Event) { ch <- e })
	r := make([]byte, 1)
	if err := d.Xfer(common.XferTxRx(0x48, []byte{0x01}, r), common.RepeatedXfer); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if i != 0 {
			hw.Trigger(nrf.TaskStartTX)
		}
		if e := waitEvent(t, ch); e.Type != EventDone || e.RxAmount != 1 {
			t.Fatalf("#%d: got %s", i, e)
		}
	}
	if d.IsBusy() {
		t.Fatal("RepeatedXfer marked the instance busy")
	}
	if hw.Shorts() != nrf.ShortLastTxStartRx|nrf.ShortLastRxStop {
		t.Fatalf("shorts %s", hw.Shorts())
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInterrupt_SpuriousStop(t *testing.T) {
	data := []struct {
		flags common.Flags
		want  EventType
	}{
		{common.HoldXfer, EventBusError},
		{common.HoldXfer | common.NoSpuriousStopCheck, EventDone},
	}
	for _, line := range data {
		ch := make(chan Event, 1)
		d, hw := newDev(t, &i2ctest.Playback{DontPanic: true}, func(e Event) { ch <- e })
		if err := d.Xfer(common.XferRx(0x48, make([]byte, 3)), line.flags); err != nil {
			t.Fatal(err)
		}
		hw.Raise(nrf.EventStopped)
		if e := waitEvent(t, ch); e.Type != line.want {
			t.Fatalf("%#x: got %s", uint32(line.flags), e)
		}
	}
}

func TestAnomaly109(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	hw := nrftest.NewTWIM("TWIM0", mem, nil)
	d := New(hw)
	o := testOpts()
	o.Frequency = 400 * physic.KiloHertz
	o.Quirk = Anomaly109{}
	ch := make(chan Event, 1)
	if err := d.Init(&o, func(e Event) { ch <- e }); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	defer d.Uninit()
	if err := d.Write(0x48, []byte{0x00, 0x42}, false); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, ch); e.Type != EventDone || e.TxAmount != 2 {
		t.Fatalf("got %s", e)
	}
	if hw.Resets() != 1 {
		t.Fatalf("reset %d times", hw.Resets())
	}
	if hw.Frequency() != nrf.Frequency400K {
		t.Fatalf("frequency %s", hw.Frequency())
	}
	starts := 0
	for _, task := range hw.Tasks() {
		if task == nrf.TaskStartTX {
			starts++
		}
	}
	if starts != 2 {
		t.Fatalf("STARTTX triggered %d times", starts)
	}
	if got := mem.Dump(0, 1); got[0] != 0x42 {
		t.Fatalf("got %v", got)
	}
}

func TestAbort(t *testing.T) {
	ch := make(chan Event, 1)
	d, hw := newDev(t, &i2ctest.Playback{DontPanic: true}, func(e Event) { ch <- e })
	if err := d.Xfer(common.XferRx(0x48, make([]byte, 2)), common.HoldXfer); err != nil {
		t.Fatal(err)
	}
	if err := d.Abort(); err != nil {
		t.Fatal(err)
	}
	if d.IsBusy() || hw.IntEnabled() != 0 || hw.Shorts() != 0 {
		t.Fatal("abort left the transfer armed")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected %s", e)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestAbort_Stuck(t *testing.T) {
	hw := nrftest.NewTWIM("TWIM0", nrftest.NewMem(0x48), nil)
	d := New(hw)
	o := testOpts()
	o.Timeout = time.Millisecond
	o.Clock = &nrftest.Clock{}
	if err := d.Init(&o, func(Event) {}); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	hw.Hang = true
	if err := d.Xfer(common.XferTx(0x48, []byte{1}), 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Abort(); !errors.Is(err, common.ErrInternal) {
		t.Fatal(err)
	}
	if hw.Resets() != 1 || d.IsBusy() {
		t.Fatalf("resets=%d busy=%t", hw.Resets(), d.IsBusy())
	}
	// Uninit aborts too.
	if err := d.Uninit(); err != nil {
		t.Fatal(err)
	}
}

func TestArbiter(t *testing.T) {
	box := prs.NewBox("box0")
	if err := box.Acquire("SPIM0", func() {}); err != nil {
		t.Fatal(err)
	}
	hw := nrftest.NewTWIM("TWIM0", nrftest.NewMem(0x48), box)
	d := New(hw)
	o := testOpts()
	if err := d.Init(&o, nil); !errors.Is(err, common.ErrBusy) {
		t.Fatal(err)
	}
	box.Release("SPIM0")
	ch := make(chan Event, 1)
	if err := d.Init(&o, func(e Event) { ch <- e }); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(0x48, []byte{0}, false); err != nil {
		t.Fatal(err)
	}
	if e := waitEvent(t, ch); e.Type != EventDone {
		t.Fatalf("got %s", e)
	}
	if err := d.Uninit(); err != nil {
		t.Fatal(err)
	}
	if box.Owner() != "" {
		t.Fatalf("owner %q", box.Owner())
	}
}

func TestBus(t *testing.T) {
	mem := nrftest.NewMem(0x48)
	mem.Load(0x05, []byte{0x12, 0x34})
	for _, h := range []Handler{nil, func(Event) { t.Error("handler called") }} {
		d, _ := newDev(t, mem, h)
		dev := i2c.Dev{Bus: d, Addr: 0x48}
		r := make([]byte, 2)
		if err := dev.Tx([]byte{0x05}, r); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(r, []byte{0x12, 0x34}) {
			t.Fatalf("got %v", r)
		}
		if err := d.Tx(0x49, nil, r); !errors.Is(err, common.ErrAddressNack) {
			t.Fatal(err)
		}
	}
}

//

func testOpts() Opts {
	o := DefaultOpts
	o.SCL = &gpiotest.Pin{N: "SCL", Num: 27, P: gpio.PullNoChange}
	o.SDA = &gpiotest.Pin{N: "SDA", Num: 26, P: gpio.PullNoChange}
	return o
}

func newDev(t *testing.T, bus i2c.Bus, h Handler) (*Dev, *nrftest.TWIM) {
	hw := nrftest.NewTWIM("TWIM0", bus, nil)
	d := New(hw)
	o := testOpts()
	if err := d.Init(&o, h); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Uninit() })
	return d, hw
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func waitFor(t *testing.T, cond func() bool) {
	end := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(end) {
			t.Fatal("timed out")
		}
		time.Sleep(time.Millisecond)
	}
}

// heldLow is an SDA line a slave never releases.
type heldLow struct {
	gpiotest.Pin
}

func (p *heldLow) Read() gpio.Level {
	return gpio.Low
}

func TestRecoverBus(t *testing.T) {
	d := New(nrftest.NewTWIM("TWIM0", nrftest.NewMem(0x48), nil))
	o := testOpts()
	o.Frequency = 400 * physic.KiloHertz
	if err := d.RecoverBus(); !errors.Is(err, common.ErrInvalidState) {
		t.Fatal(err)
	}
	if err := d.Init(&o, nil); err != nil {
		t.Fatal(err)
	}
	defer d.Uninit()
	if err := d.RecoverBus(); err != nil {
		t.Fatal(err)
	}
	if p := o.SCL.(*gpiotest.Pin).Pull(); p != gpio.PullUp {
		t.Fatalf("SCL left as %s", p)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	// The block owns the pins while enabled.
	if err := d.RecoverBus(); !errors.Is(err, common.ErrInvalidState) {
		t.Fatal(err)
	}

	stuck := New(nrftest.NewTWIM("TWIM1", nrftest.NewMem(0x48), nil))
	o = testOpts()
	o.SDA = &heldLow{Pin: gpiotest.Pin{N: "SDA", Num: 26}}
	if err := stuck.Init(&o, nil); err != nil {
		t.Fatal(err)
	}
	defer stuck.Uninit()
	if err := stuck.RecoverBus(); !errors.Is(err, common.ErrInternal) {
		t.Fatal(err)
	}
}
