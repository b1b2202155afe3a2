package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
)

var ErrUnreachable = errors.New("target unreachable")

// ConnLookup resolves a handle to a live, addressable transport.
type ConnLookup interface {
	Lookup(id domain.ConnID) (core.SignalConnection, bool)
}

// Relay forwards one frame to one handle. It keeps no state and never retries.
type Relay struct {
	conns ConnLookup
}

func NewRelay(conns ConnLookup) *Relay {
	return &Relay{conns: conns}
}

// Forward delivers f unmodified. It returns ErrUnreachable when the target is
// gone or superseded, and core.ErrBackpressure when its queue is full.
func (r *Relay) Forward(target domain.ConnID, f core.Frame) error {
	sig, ok := r.conns.Lookup(target)
	if !ok {
		return ErrUnreachable
	}
	err := sig.TrySend(f)
	if errors.Is(err, core.ErrConnClosed) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return err
}
