package app

import "github.com/dkeye/MedCall/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	DropConnection
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(conn domain.ConnID) BackpressureAction
}

// SimplePolicy drops slow connections; the disconnect path cleans up after them.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return DropConnection
}
