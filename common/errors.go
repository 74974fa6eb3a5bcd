// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"errors"
)

// Result codes returned synchronously by the engines. Bus errors are also
// returned by blocking transfers.
var (
	ErrInvalidState  = errors.New("invalid driver state")
	ErrBusy          = errors.New("busy")
	ErrInvalidAddr   = errors.New("buffer is not in DMA capable memory")
	ErrInvalidLength = errors.New("length exceeds the hardware count field")
	ErrInvalidParam  = errors.New("invalid parameter")
	ErrNotSupported  = errors.New("not supported")
	ErrInternal      = errors.New("internal error")

	ErrAddressNack = errors.New("address not acknowledged")
	ErrDataNack    = errors.New("data not acknowledged")
	ErrOverrun     = errors.New("receiver overrun")
	ErrBus         = errors.New("bus error")
)

// IsBusError reports whether err was raised by the bus rather than by the
// caller.
func IsBusError(err error) bool {
	return errors.Is(err, ErrAddressNack) || errors.Is(err, ErrDataNack) ||
		errors.Is(err, ErrOverrun) || errors.Is(err, ErrBus)
}
