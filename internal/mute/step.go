package mute

// Step is the transition function of the reconciler. It never touches
// timers or actuators; the returned effects are applied in order.
func Step(s State, ev Event) (State, []Effect) {
	if s.Closed {
		return s, nil
	}
	switch ev.Kind {
	case EventPolicy:
		return stepPolicy(s, ev.Value)
	case EventConfirmed:
		s.ConfirmedMuted = ev.Value
		s.ConfirmedKnown = true
		return s, nil
	case EventUnmuteTimer:
		return stepUnmuteTimer(s)
	case EventSyncTimer:
		s.SyncPending = false
		return stepVerify(s, OriginResync)
	case EventResync:
		return stepVerify(s, OriginManual)
	case EventShutdown:
		return stepShutdown(s)
	default:
		return s, nil
	}
}

func stepPolicy(s State, policy bool) (State, []Effect) {
	if s.PolicyKnown && s.Policy == policy {
		return s, nil
	}
	var effects []Effect
	if policy {
		if s.UnmutePending {
			effects = append(effects, Effect{Kind: EffectCancelUnmuteTimer})
			s.UnmutePending = false
		}
		s, effects = command(s, effects, true, OriginPolicy)
	} else {
		effects = append(effects, Effect{Kind: EffectArmUnmuteTimer})
		s.UnmutePending = true
	}
	s.Policy = policy
	s.PolicyKnown = true
	return s, effects
}

func stepUnmuteTimer(s State) (State, []Effect) {
	s.UnmutePending = false
	// The policy may have flipped back after the timer was already
	// committed to firing.
	if s.Policy {
		return s, nil
	}
	return command(s, nil, false, OriginDebounce)
}

func stepVerify(s State, origin Origin) (State, []Effect) {
	if !s.Commanded {
		return s, nil
	}
	if s.CommandedMuted == s.ConfirmedMuted {
		s.Resyncs = 0
		return s, nil
	}
	s.Resyncs++
	kind := EffectUnmute
	if s.CommandedMuted {
		kind = EffectMute
	}
	s.SyncPending = true
	return s, []Effect{
		{Kind: kind, Origin: origin},
		{Kind: EffectArmSyncTimer, Origin: origin},
	}
}

func stepShutdown(s State) (State, []Effect) {
	var effects []Effect
	if s.UnmutePending {
		effects = append(effects, Effect{Kind: EffectCancelUnmuteTimer})
	}
	if s.SyncPending {
		effects = append(effects, Effect{Kind: EffectCancelSyncTimer})
	}
	s.UnmutePending = false
	s.SyncPending = false
	s.Closed = true
	return s, effects
}

func command(s State, effects []Effect, muted bool, origin Origin) (State, []Effect) {
	kind := EffectUnmute
	if muted {
		kind = EffectMute
	}
	s.CommandedMuted = muted
	s.Commanded = true
	s.SyncPending = true
	s.Resyncs = 0
	return s, append(effects,
		Effect{Kind: kind, Origin: origin},
		Effect{Kind: EffectArmSyncTimer, Origin: origin},
	)
}
