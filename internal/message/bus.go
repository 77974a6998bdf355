// Copyright (c) 2020 VMware, Inc. or its affiliates.  All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package message

import "sync"

// Bus is the network: an unordered multiset of in-flight messages plus the
// id allocator. Any message may be delivered next.
type Bus struct {
	mu       sync.Mutex
	messages []Message
	counter  uint64
	changed  chan struct{}
}

func NewBus() *Bus {
	return &Bus{counter: 1, changed: make(chan struct{})}
}

// NextID allocates a fresh message id.
func (b *Bus) NextID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.counter
	b.counter++
	return id
}

// IDCounter is the next id NextID will return; every allocated id is below it.
func (b *Bus) IDCounter() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counter
}

// Send puts a copy of msg in flight.
func (b *Bus) Send(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg.deepCopy())
	b.signal()
}

// Receive takes the message with the given id addressed to dst.
func (b *Bus) Receive(id uint64, dst Endpoint) (Message, bool) {
	return b.ReceiveMatching(func(m Message) bool {
		return m.ID == id && m.Dst == dst
	})
}

// ReceiveMatching takes the oldest in-flight message accepted by pred.
func (b *Bus) ReceiveMatching(pred func(Message) bool) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, m := range b.messages {
		if pred(m) {
			b.messages = append(b.messages[:i:i], b.messages[i+1:]...)
			b.signal()
			return m, true
		}
	}
	return Message{}, false
}

// Requests returns the in-flight requests, oldest first.
func (b *Bus) Requests() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var requests []Message
	for _, m := range b.messages {
		if m.IsRequest() {
			requests = append(requests, m)
		}
	}
	return requests
}

// Messages returns every in-flight message, oldest first.
func (b *Bus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// Any reports whether some in-flight message satisfies pred.
func (b *Bus) Any(pred func(Message) bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if pred(m) {
			return true
		}
	}
	return false
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// Changed returns a channel closed at the next send or receive.
func (b *Bus) Changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changed
}

func (b *Bus) signal() {
	close(b.changed)
	b.changed = make(chan struct{})
}
