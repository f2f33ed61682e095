package actuator

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/radiomute/internal/clock"
	"github.com/danmuck/radiomute/internal/protocol/osc"
	"github.com/rs/zerolog/log"
)

// VoiceInputPath is the host's push/toggle voice button.
const VoiceInputPath = "/input/Voice"

const (
	DefaultPulseHold = 50 * time.Millisecond
	// DefaultPressSettle covers the host's parameter report lag with room
	// for a few reconcile delays.
	DefaultPressSettle = 500 * time.Millisecond
)

// Sender writes one OSC message to the host.
type Sender interface {
	Send(m osc.Message) error
}

// UDPSender sends OSC messages over a connected UDP socket.
type UDPSender struct {
	conn net.Conn
}

func DialUDP(addr string) (*UDPSender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("actuator: dial %s: %w", addr, err)
	}
	return &UDPSender{conn: conn}, nil
}

func (s *UDPSender) Send(m osc.Message) error {
	packet, err := osc.Encode(m)
	if err != nil {
		return err
	}
	_, err = s.conn.Write(packet)
	return err
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

// VoiceConfig tunes the voice button presses.
type VoiceConfig struct {
	// Hold is how long the button stays down.
	Hold time.Duration
	// Settle bounds how long a press waits for the host to report the
	// flipped state. Until then no further press is sent.
	Settle time.Duration
}

// OSCVoice drives the host's voice button. The button toggles, so a
// command only presses it when the last observed mute state differs from
// the target and no earlier press is still unconfirmed; that keeps Mute
// and Unmute idempotent.
type OSCVoice struct {
	sender Sender
	clock  clock.Clock
	hold   time.Duration
	settle time.Duration

	mu           sync.Mutex
	attached     bool
	muted        bool
	pressed      bool
	releaseTimer *clock.Timer
	inflight     bool
	target       bool
	deadline     time.Time
	presses      uint64
	expired      uint64
}

func NewOSCVoice(sender Sender, clk clock.Clock, cfg VoiceConfig) *OSCVoice {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Hold < 0 {
		cfg.Hold = 0
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultPressSettle
	}
	if cfg.Settle < cfg.Hold {
		cfg.Settle = cfg.Hold
	}
	return &OSCVoice{sender: sender, clock: clk, hold: cfg.Hold, settle: cfg.Settle}
}

// SetAttached marks whether the host is reachable.
func (v *OSCVoice) SetAttached(attached bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = attached
}

// Observe records the host-reported mute state. A report matching the
// in-flight press confirms it.
func (v *OSCVoice) Observe(muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.muted = muted
	if v.inflight && muted == v.target {
		v.inflight = false
	}
}

// Presses returns how many button presses were sent.
func (v *OSCVoice) Presses() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.presses
}

// Expired returns how many presses were never confirmed within Settle.
func (v *OSCVoice) Expired() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expired
}

func (v *OSCVoice) Mute() error { return v.drive(true) }
func (v *OSCVoice) Unmute() error { return v.drive(false) }

func (v *OSCVoice) drive(target bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached || v.sender == nil {
		return ErrUnavailable
	}
	if v.inflight {
		// The host has not reported the last press yet. Another press
		// would be applied on top of it and undo it.
		if v.clock.Now().Before(v.deadline) {
			return nil
		}
		v.inflight = false
		v.expired++
		log.Warn().
			Bool("target", v.target).
			Dur("settle", v.settle).
			Msg("actuator.OSCVoice.press unconfirmed")
	}
	if v.muted == target {
		return nil
	}
	if err := v.sender.Send(osc.NewMessage(VoiceInputPath, osc.Int32(1))); err != nil {
		return fmt.Errorf("actuator: press voice: %w", err)
	}
	v.presses++
	v.inflight = true
	v.target = target
	v.deadline = v.clock.Now().Add(v.settle)
	v.pressed = true
	if v.hold == 0 {
		return v.releaseLocked()
	}
	v.releaseTimer = v.clock.AfterFunc(v.hold, v.release)
	return nil
}

// Release lets go of a held press immediately. Call it before the sender
// is closed so the host is not left with the button down.
func (v *OSCVoice) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.pressed {
		return nil
	}
	return v.releaseLocked()
}

func (v *OSCVoice) release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.pressed {
		return
	}
	if err := v.releaseLocked(); err != nil {
		log.Error().Err(err).Msg("actuator.OSCVoice.release failed")
	}
}

func (v *OSCVoice) releaseLocked() error {
	v.pressed = false
	if v.releaseTimer != nil {
		v.releaseTimer.Stop()
		v.releaseTimer = nil
	}
	if err := v.sender.Send(osc.NewMessage(VoiceInputPath, osc.Int32(0))); err != nil {
		return fmt.Errorf("actuator: release voice: %w", err)
	}
	return nil
}
