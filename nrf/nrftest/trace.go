// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"fmt"
	"sync"
)

// Kind classifies a trace record.
type Kind uint8

const (
	KindTask Kind = iota
	KindEvent
	KindBus
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindEvent:
		return "event"
	case KindBus:
		return "bus"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Record is one thing that happened on a simulated block.
type Record struct {
	Seq   int
	Block string
	Kind  Kind
	Name  string
	// Bus records only.
	Addr uint16
	W, R []byte
	Err  error
}

func (r Record) String() string {
	if r.Kind == KindBus {
		s := fmt.Sprintf("%4d %-6s bus 0x%02x W:% x R:% x", r.Seq, r.Block, r.Addr, r.W, r.R)
		if r.Err != nil {
			s += " err: " + r.Err.Error()
		}
		return s
	}
	return fmt.Sprintf("%4d %-6s %-5s %s", r.Seq, r.Block, r.Kind, r.Name)
}

// Trace collects records from one or more blocks in order.
type Trace struct {
	mu      sync.Mutex
	records []Record
}

func (t *Trace) add(r Record) {
	if t == nil {
		return
	}
	t.mu.Lock()
	r.Seq = len(t.records)
	if r.W != nil {
		r.W = append([]byte(nil), r.W...)
	}
	if r.R != nil {
		r.R = append([]byte(nil), r.R...)
	}
	t.records = append(t.records, r)
	t.mu.Unlock()
}

// Records returns a copy of what was recorded so far.
func (t *Trace) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.records...)
}

// Reset drops all records.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.records = nil
	t.mu.Unlock()
}
