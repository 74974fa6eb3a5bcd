// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%x received 0x%x", test.bytes, test.result, res)
		}
	}
}

func TestPEC(t *testing.T) {
	// CRC-8/SMBUS check value.
	if got := PEC([]byte("123456789")); got != 0xf4 {
		t.Errorf("PEC(123456789)=0x%x, want 0xf4", got)
	}
	// Split input must match contiguous input.
	if a, b := PEC([]byte("1234"), []byte("56789")), PEC([]byte("123456789")); a != b {
		t.Errorf("split PEC 0x%x != 0x%x", a, b)
	}
	if PEC() != 0 {
		t.Error("empty PEC must be 0")
	}
}

func TestAddressByte(t *testing.T) {
	if b := AddressByte(0x50, false); b != 0xa0 {
		t.Errorf("write address byte 0x%x", b)
	}
	if b := AddressByte(0x50, true); b != 0xa1 {
		t.Errorf("read address byte 0x%x", b)
	}
}
