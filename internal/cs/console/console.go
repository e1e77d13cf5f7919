// Package console provides sources of raw srcds console log lines, either
// from a local console.log file or from the remote udp log protocol.
package console

import (
	"context"
	"errors"
)

// Receiver handles incoming raw log message lines.
type Receiver interface {
	Send(string)
}

// Source is responsible for setting up and sending console log lines
// to a Receiver.
type Source interface {
	Open(ctx context.Context) error
	Start(ctx context.Context, receiver Receiver)
	Close(ctx context.Context) error
}

var (
	ErrConfig = errors.New("invalid log source configuration")
	ErrOpen   = errors.New("failed to open log source")
	ErrClose  = errors.New("failed to close log source")
)
