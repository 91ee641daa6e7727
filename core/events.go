package core

import (
	"sync"

	"github.com/Dyastin-0/lanmsg/peers"
)

// Event is one of PeerFound, PeerLost, MessageReceived, FileProgress or TransferFailed.
type Event interface {
	event()
}

type PeerFound struct {
	Peer peers.Identity
	// Descriptor is "{hostname} ({address})".
	Descriptor string
	// New is false when the announcement only refreshed a known peer.
	New bool
}

type PeerLost struct {
	Peer peers.Identity
}

type MessageReceived struct {
	From string
	Text string
}

type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

type FileProgress struct {
	ID        string
	FileName  string
	Direction Direction
	Percent   int
	Bytes     int64
	Total     int64
}

type TransferFailed struct {
	ID        string
	FileName  string
	Direction Direction
	Bytes     int64
	Err       error
}

func (PeerFound) event()       {}
func (PeerLost) event()        {}
func (MessageReceived) event() {}
func (FileProgress) event()    {}
func (TransferFailed) event()  {}

type bus struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func newBus(size int) *bus {
	return &bus{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// emit blocks until the event is queued or the bus is closed. Progress
// below 100 is dropped instead of blocking when the queue is full.
func (b *bus) emit(e Event) {
	if p, ok := e.(FileProgress); ok && p.Percent < 100 {
		select {
		case b.ch <- e:
		case <-b.done:
		default:
		}
		return
	}

	select {
	case b.ch <- e:
	case <-b.done:
	}
}

func (b *bus) close() {
	b.once.Do(func() { close(b.done) })
}
