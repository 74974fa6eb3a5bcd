// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twis

import (
	"math/rand"
	"testing"

	"github.com/GermanBionicSystems/nrfx/nrf"
)

func TestTransition(t *testing.T) {
	const (
		stopped = nrf.EventStopped
		errEv   = nrf.EventError
		rxs     = nrf.EventRxStarted
		txs     = nrf.EventTxStarted
		write   = nrf.EventWrite
		read    = nrf.EventRead
	)
	data := []struct {
		s    Substate
		ev   nrf.Event
		want step
	}{
		{Idle, stopped, step{next: Idle}},
		{Idle, stopped | read, step{next: Idle, rest: read}},
		{Idle, read, step{next: ReadWaiting, emit: emitReadRequested, needsBuffer: true}},
		{Idle, read | txs, step{next: ReadPending, emit: emitReadRequested}},
		{Idle, read | txs | write | rxs, step{next: ReadPending, emit: emitReadRequested}},
		{Idle, write, step{next: WriteWaiting, emit: emitWriteRequested, needsBuffer: true}},
		{Idle, write | rxs | stopped, step{next: WritePending, rest: stopped, emit: emitWriteRequested}},
		{Idle, read | txs | stopped, step{next: ReadPending, rest: stopped, emit: emitReadRequested}},
		{Idle, write | rxs, step{next: WritePending, emit: emitWriteRequested}},
		{Idle, errEv, step{next: Idle, emit: emitGeneralError}},
		{Idle, txs, step{next: Idle, emit: emitGeneralError}},
		{ReadWaiting, txs, step{next: ReadPending}},
		{ReadWaiting, txs | stopped, step{next: ReadPending, rest: stopped}},
		{ReadWaiting, stopped, step{next: ReadPending, rest: stopped}},
		{ReadWaiting, errEv, step{next: Idle, emit: emitReadError}},
		{ReadWaiting, rxs, step{next: Idle, emit: emitReadError}},
		{ReadPending, stopped, step{next: Idle, emit: emitReadDone}},
		{ReadPending, write | rxs, step{next: Idle, rest: write | rxs, emit: emitReadDone}},
		{ReadPending, errEv, step{next: Idle, emit: emitReadError}},
		{WriteWaiting, rxs, step{next: WritePending}},
		{WriteWaiting, read, step{next: WritePending, rest: read}},
		{WriteWaiting, txs, step{next: Idle, emit: emitWriteError}},
		{WritePending, stopped | errEv, step{next: Idle, rest: errEv, emit: emitWriteDone}},
		{WritePending, txs, step{next: Idle, emit: emitWriteError}},
		{Substate(42), read, step{next: Idle, rest: read}},
	}
	for i, line := range data {
		if got := transition(line.s, line.ev); got != line.want {
			t.Errorf("#%d %s + %s: got %+v, want %+v", i, line.s, line.ev, got, line.want)
		}
	}
}

// TestTransition_Random checks on random batches that the machine always
// terminates, that errors always land in Idle, and that a Done is only
// emitted from a pending state.
func TestTransition_Random(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		s := Substate(rnd.Intn(5))
		ev := nrf.Event(rnd.Uint32()) & machineEvents
		for n := 0; ev != 0; n++ {
			if n > 10 {
				t.Fatalf("%s + %s does not terminate", s, ev)
			}
			st := transition(s, ev)
			if st.rest&^ev != 0 {
				t.Fatalf("%s + %s created events %s", s, ev, st.rest)
			}
			switch st.emit {
			case emitReadDone:
				if s != ReadPending {
					t.Fatalf("ReadDone from %s", s)
				}
			case emitWriteDone:
				if s != WritePending {
					t.Fatalf("WriteDone from %s", s)
				}
			case emitReadError, emitWriteError, emitGeneralError:
				if st.next != Idle || st.rest != 0 {
					t.Fatalf("%s + %s: error left %+v", s, ev, st)
				}
			}
			s, ev = st.next, st.rest
		}
	}
}

func TestSubstate_String(t *testing.T) {
	if s := WritePending.String(); s != "WritePending" {
		t.Fatal(s)
	}
	if s := Substate(9).String(); s != "Substate(9)" {
		t.Fatal(s)
	}
}
