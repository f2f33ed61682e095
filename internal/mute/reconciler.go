package mute

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/radiomute/internal/actuator"
	"github.com/danmuck/radiomute/internal/clock"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed       = errors.New("mute: reconciler closed")
	ErrInvalidDelay = errors.New("mute: invalid delay")
)

// Observer receives reconciler activity, e.g. for metrics. Calls happen
// with the reconciler lock held and must not call back into it.
type Observer interface {
	Commanded(muted bool, origin Origin, err error)
	Transitioned(ev Event, s State)
}

type Config struct {
	Delay time.Duration
	// RetryWarnAfter logs a warning every N consecutive resyncs. Zero
	// disables the warning. Resyncs are never capped.
	RetryWarnAfter int
	Clock          clock.Clock
	Observer       Observer
}

func DefaultConfig() Config {
	return Config{
		Delay:          DefaultDelay,
		RetryWarnAfter: 20,
		Clock:          clock.Real(),
	}
}

// Counters are cumulative since construction.
type Counters struct {
	Mutes       uint64 `json:"mutes"`
	Unmutes     uint64 `json:"unmutes"`
	Resyncs     uint64 `json:"resyncs"`
	Unavailable uint64 `json:"unavailable"`
	Failed      uint64 `json:"failed"`
	StaleTimers uint64 `json:"stale_timers"`
}

type Snapshot struct {
	State     State     `json:"state"`
	Phase     Phase     `json:"phase"`
	Converged bool      `json:"converged"`
	Counters  Counters  `json:"counters"`
	Delay     string    `json:"delay"`
	TakenAt   time.Time `json:"taken_at"`
}

// Reconciler drives an Actuator so that the confirmed mute state follows
// the policy signal. All state is guarded by mu; timer callbacks and
// signal calls are serialized through it.
type Reconciler struct {
	mu       sync.Mutex
	act      actuator.Actuator
	clock    clock.Clock
	delay    time.Duration
	warnAt   int
	observer Observer

	state    State
	unmute   timerSlot
	sync     timerSlot
	counters Counters
}

// timerSlot holds at most one pending timer of a kind. gen moves on every
// arm and cancel so a callback that lost the race with Stop can tell it
// is stale.
type timerSlot struct {
	timer *clock.Timer
	gen   uint64
}

func (t *timerSlot) cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func New(act actuator.Actuator, cfg Config) (*Reconciler, error) {
	if cfg.Delay <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDelay, cfg.Delay)
	}
	if act == nil {
		act = actuator.Func{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Reconciler{
		act:      act,
		clock:    cfg.Clock,
		delay:    cfg.Delay,
		warnAt:   cfg.RetryWarnAfter,
		observer: cfg.Observer,
	}, nil
}

// PolicyChanged handles a radio-at-head value. Repeated values are
// ignored.
func (r *Reconciler) PolicyChanged(atHead bool) error {
	return r.dispatch(Event{Kind: EventPolicy, Value: atHead})
}

// ConfirmedMutedChanged records the observed device state. It never
// commands the actuator; the sync timer does that.
func (r *Reconciler) ConfirmedMutedChanged(muted bool) error {
	return r.dispatch(Event{Kind: EventConfirmed, Value: muted})
}

// Resync runs a convergence check now instead of waiting for the sync
// timer.
func (r *Reconciler) Resync() error {
	return r.dispatch(Event{Kind: EventResync})
}

// Shutdown cancels both timers. After it returns no actuator command is
// issued and further events return ErrClosed. Safe to call repeatedly.
func (r *Reconciler) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Closed {
		return
	}
	r.applyLocked(Event{Kind: EventShutdown})
	// Invalidate anything already committed to firing.
	r.unmute.cancel()
	r.sync.cancel()
	log.Info().Msg("mute.Reconciler.shutdown")
}

func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State:     r.state,
		Phase:     r.state.Phase(),
		Converged: r.state.Converged(),
		Counters:  r.counters,
		Delay:     r.delay.String(),
		TakenAt:   r.clock.Now(),
	}
}

func (r *Reconciler) dispatch(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Closed {
		return ErrClosed
	}
	r.applyLocked(ev)
	return nil
}

func (r *Reconciler) applyLocked(ev Event) {
	prev := r.state
	next, effects := Step(r.state, ev)
	r.state = next
	for _, eff := range effects {
		r.runLocked(eff)
	}
	if prev != next {
		log.Debug().
			Str("event", ev.Kind.String()).
			Bool("value", ev.Value).
			Str("phase", string(next.Phase())).
			Bool("policy", next.Policy).
			Bool("commanded_muted", next.CommandedMuted).
			Bool("confirmed_muted", next.ConfirmedMuted).
			Msg("mute.Reconciler.transition")
	}
	if r.observer != nil {
		r.observer.Transitioned(ev, next)
	}
	if ev.Kind == EventSyncTimer && next.Resyncs > 0 && r.warnAt > 0 && next.Resyncs%r.warnAt == 0 {
		log.Warn().
			Int("resyncs", next.Resyncs).
			Bool("commanded_muted", next.CommandedMuted).
			Bool("confirmed_muted", next.ConfirmedMuted).
			Msg("mute.Reconciler.not_converging")
	}
}

func (r *Reconciler) runLocked(eff Effect) {
	switch eff.Kind {
	case EffectMute:
		r.commandLocked(true, eff.Origin)
	case EffectUnmute:
		r.commandLocked(false, eff.Origin)
	case EffectArmUnmuteTimer:
		r.armLocked(&r.unmute, EventUnmuteTimer)
	case EffectCancelUnmuteTimer:
		r.unmute.cancel()
	case EffectArmSyncTimer:
		r.armLocked(&r.sync, EventSyncTimer)
	case EffectCancelSyncTimer:
		r.sync.cancel()
	}
}

func (r *Reconciler) armLocked(slot *timerSlot, kind EventKind) {
	slot.cancel()
	gen := slot.gen
	slot.timer = r.clock.AfterFunc(r.delay, func() {
		r.fire(slot, kind, gen)
	})
}

func (r *Reconciler) fire(slot *timerSlot, kind EventKind, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Closed || slot.gen != gen {
		r.counters.StaleTimers++
		log.Debug().Str("timer", kind.String()).Msg("mute.Reconciler.stale_timer")
		return
	}
	slot.timer = nil
	r.applyLocked(Event{Kind: kind})
}

func (r *Reconciler) commandLocked(muted bool, origin Origin) {
	var err error
	if muted {
		err = r.act.Mute()
		r.counters.Mutes++
	} else {
		err = r.act.Unmute()
		r.counters.Unmutes++
	}
	if origin == OriginResync || origin == OriginManual {
		r.counters.Resyncs++
	}

	switch {
	case err == nil:
		log.Info().Bool("muted", muted).Str("origin", string(origin)).Msg("mute.Reconciler.command")
	case errors.Is(err, actuator.ErrUnavailable):
		r.counters.Unavailable++
		log.Warn().Bool("muted", muted).Str("origin", string(origin)).Msg("mute.Reconciler.command actuator unavailable")
	default:
		r.counters.Failed++
		log.Error().Err(err).Bool("muted", muted).Str("origin", string(origin)).Msg("mute.Reconciler.command failed")
	}
	if r.observer != nil {
		r.observer.Commanded(muted, origin, err)
	}
}
