// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the types shared by the I²C engines: transfer
// descriptors, driver lifecycle, error codes and the lock-free error
// accumulator. It also holds small helpers used across multiple packages,
// for example CRC8 and bus recovery.
package common
