package mute

import "time"

// DefaultDelay is the unmute debounce window and the sync recheck interval.
const DefaultDelay = 150 * time.Millisecond

// Phase is the conceptual state derived from State.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseMuted         Phase = "muted"
	PhasePendingUnmute Phase = "pending_unmute"
	PhaseUnmuted       Phase = "unmuted"
	PhaseVerifying     Phase = "verifying"
)

// Origin records why a command was issued.
type Origin string

const (
	OriginPolicy   Origin = "policy"
	OriginDebounce Origin = "debounce"
	OriginResync   Origin = "resync"
	OriginManual   Origin = "manual"
)

// State is everything the reconciler knows. The zero value is a fresh
// reconciler that has seen no signals.
type State struct {
	Policy         bool `json:"policy"`
	PolicyKnown    bool `json:"policy_known"`
	ConfirmedMuted bool `json:"confirmed_muted"`
	ConfirmedKnown bool `json:"confirmed_known"`
	CommandedMuted bool `json:"commanded_muted"`
	Commanded      bool `json:"commanded"`
	UnmutePending  bool `json:"unmute_pending"`
	SyncPending    bool `json:"sync_pending"`
	// Resyncs counts consecutive re-issued commands since the last
	// policy-driven command or observed convergence.
	Resyncs int  `json:"resyncs"`
	Closed  bool `json:"closed"`
}

func (s State) Phase() Phase {
	switch {
	case s.SyncPending:
		return PhaseVerifying
	case s.UnmutePending:
		return PhasePendingUnmute
	case !s.Commanded:
		return PhaseIdle
	case s.CommandedMuted:
		return PhaseMuted
	default:
		return PhaseUnmuted
	}
}

// Converged reports whether the confirmation agrees with the last command.
func (s State) Converged() bool {
	return s.Commanded && s.CommandedMuted == s.ConfirmedMuted
}

// Desired is the mute state implied by the policy.
func (s State) Desired() bool {
	return s.Policy
}

type EventKind int

const (
	EventPolicy EventKind = iota + 1
	EventConfirmed
	EventUnmuteTimer
	EventSyncTimer
	EventResync
	EventShutdown
)

func (k EventKind) String() string {
	switch k {
	case EventPolicy:
		return "policy"
	case EventConfirmed:
		return "confirmed"
	case EventUnmuteTimer:
		return "unmute_timer"
	case EventSyncTimer:
		return "sync_timer"
	case EventResync:
		return "resync"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is one input to Step. Value is only meaningful for policy and
// confirmation events.
type Event struct {
	Kind  EventKind
	Value bool
}

type EffectKind int

const (
	EffectMute EffectKind = iota + 1
	EffectUnmute
	EffectArmUnmuteTimer
	EffectCancelUnmuteTimer
	EffectArmSyncTimer
	EffectCancelSyncTimer
)

func (k EffectKind) String() string {
	switch k {
	case EffectMute:
		return "mute"
	case EffectUnmute:
		return "unmute"
	case EffectArmUnmuteTimer:
		return "arm_unmute_timer"
	case EffectCancelUnmuteTimer:
		return "cancel_unmute_timer"
	case EffectArmSyncTimer:
		return "arm_sync_timer"
	case EffectCancelSyncTimer:
		return "cancel_sync_timer"
	default:
		return "unknown"
	}
}

// Effect is a side effect requested by Step. Arming a timer implies
// canceling any timer of the same kind.
type Effect struct {
	Kind   EffectKind
	Origin Origin
}
