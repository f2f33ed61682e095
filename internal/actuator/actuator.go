// Package actuator owns the outbound side of the mute loop: the commands
// that flip the voice input device.
//
// Implementations must not block. Confirmation of a command's effect
// never comes back through this package; it arrives later as a signal.
package actuator

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that no device is attached to receive commands.
var ErrUnavailable = errors.New("actuator: not attached")

// Actuator mutes or unmutes the voice input device. Issuing Mute while
// already muted must be harmless.
type Actuator interface {
	Mute() error
	Unmute() error
}

// Func adapts a pair of functions into an Actuator.
type Func struct {
	MuteFunc   func() error
	UnmuteFunc func() error
}

func (f Func) Mute() error {
	if f.MuteFunc == nil {
		return ErrUnavailable
	}
	return f.MuteFunc()
}

func (f Func) Unmute() error {
	if f.UnmuteFunc == nil {
		return ErrUnavailable
	}
	return f.UnmuteFunc()
}

// Multi fans each command out to every member.
type Multi []Actuator

// Mute returns ErrUnavailable only when every member is unavailable;
// other member failures are joined.
func (m Multi) Mute() error {
	return m.each(func(a Actuator) error { return a.Mute() })
}

func (m Multi) Unmute() error {
	return m.each(func(a Actuator) error { return a.Unmute() })
}

func (m Multi) each(call func(Actuator) error) error {
	if len(m) == 0 {
		return ErrUnavailable
	}
	var errs []error
	unavailable := 0
	for i, a := range m {
		err := call(a)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnavailable):
			unavailable++
		default:
			errs = append(errs, fmt.Errorf("actuator[%d]: %w", i, err))
		}
	}
	if unavailable == len(m) {
		return ErrUnavailable
	}
	return errors.Join(errs...)
}
