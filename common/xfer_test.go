// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"errors"
	"math/rand"
	"testing"
)

func TestXferValidate(t *testing.T) {
	b := []byte{1}
	tests := []struct {
		name string
		x    Xfer
		err  error
	}{
		{"tx", XferTx(0x50, b), nil},
		{"rx", XferRx(0x50, b), nil},
		{"txrx", XferTxRx(0x50, b, b), nil},
		{"txtx", XferTxTx(0x50, b, b), nil},
		{"zero length nil", XferTx(0x50, nil), nil},
		{"empty non nil", XferTx(0x50, []byte{}), ErrInvalidParam},
		{"txrx missing rx", XferTxRx(0x50, b, nil), ErrInvalidParam},
		{"tx with secondary", Xfer{Addr: 0x50, Dir: Tx, Primary: b, Secondary: b}, ErrInvalidParam},
		{"bad direction", Xfer{Addr: 0x50, Dir: 9}, ErrInvalidParam},
	}
	for _, test := range tests {
		err := test.x.Validate()
		if test.err == nil && err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
		}
		if test.err != nil && !errors.Is(err, test.err) {
			t.Errorf("%s: got %v, want %v", test.name, err, test.err)
		}
	}
}

// A buffer is accepted iff it is nil with length zero or non-nil with a
// non-zero length.
func TestXferNilIffZero(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		var buf []byte
		n := r.Intn(4)
		switch r.Intn(3) {
		case 0:
			buf = nil
		case 1:
			buf = make([]byte, 0, n+1)
		default:
			buf = make([]byte, n)
		}
		x := XferTx(0x10, buf)
		err := x.Validate()
		want := buf == nil || len(buf) != 0
		if (err == nil) != want {
			t.Fatalf("buf nil=%t len=%d: err=%v", buf == nil, len(buf), err)
		}
	}
}

func TestStateExpect(t *testing.T) {
	if err := Initialized.Expect(Initialized); err != nil {
		t.Fatal(err)
	}
	if err := Uninitialized.Expect(PoweredOn); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v", err)
	}
	if s := PoweredOn.String(); s != "PoweredOn" {
		t.Fatal(s)
	}
}
