// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "fmt"

// State is the lifecycle of a driver instance. It only moves one step at a
// time.
type State uint8

const (
	Uninitialized State = iota
	Initialized
	PoweredOn
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	case PoweredOn:
		return "PoweredOn"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Expect returns ErrInvalidState wrapped with the actual state when s is not
// want.
func (s State) Expect(want State) error {
	if s != want {
		return fmt.Errorf("%w: %s, want %s", ErrInvalidState, s, want)
	}
	return nil
}
