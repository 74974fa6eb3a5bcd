// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
func CRC8(bytes []byte) byte {
	return crc8(0x31, 0xff, bytes)
}

// PEC calculates the SMBus packet error code over a transaction. The first
// byte is the address byte as it appears on the wire (address<<1 | R/W).
func PEC(bytes ...[]byte) byte {
	var crc byte
	for _, b := range bytes {
		crc = crc8(0x07, crc, b)
	}
	return crc
}

// AddressByte returns the first byte clocked on the bus for a 7-bit address.
func AddressByte(addr uint16, read bool) byte {
	b := byte(addr << 1)
	if read {
		b |= 1
	}
	return b
}

func crc8(poly, crc byte, bytes []byte) byte {
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ poly
			}
		}
	}
	return crc
}
