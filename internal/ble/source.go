package ble

import (
	"context"
	"errors"
	"time"
)

// ErrEndOfStream is returned by finite sources once every advertisement has
// been delivered. A Session treats it as a clean stop.
var ErrEndOfStream = errors.New("ble: end of advertisement stream")

// Advertisement is a single received broadcast. Payload is owned by the
// receiver: sources hand over a copy, never a buffer they reuse.
type Advertisement struct {
	Address   string
	LocalName string
	RSSI      int
	Payload   []byte
	SeenAt    time.Time
}

// Source produces advertisements until ctx is done.
//
// Scan blocks and calls fn for every advertisement received, duplicates
// included. It returns nil when ctx is cancelled or its deadline passes.
// fn may be called from a goroutine owned by the platform stack.
type Source interface {
	Scan(ctx context.Context, fn func(Advertisement)) error
}
