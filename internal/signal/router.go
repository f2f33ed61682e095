// Package signal turns inbound OSC traffic into policy and confirmation
// change events.
package signal

import (
	"strings"
	"sync"

	"github.com/danmuck/radiomute/internal/protocol/osc"
	"github.com/rs/zerolog/log"
)

const (
	ParameterPrefix  = "/avatar/parameters/"
	AvatarChangePath = "/avatar/change"

	DefaultPolicyParameter = "RadioAtHead"
	DefaultMuteParameter   = "MuteSelf"
)

// Sink consumes deduplicated change events.
type Sink interface {
	PolicyChanged(atHead bool) error
	ConfirmedMutedChanged(muted bool) error
}

// Channel names an inbound boolean signal.
type Channel string

const (
	ChannelPolicy    Channel = "policy"
	ChannelConfirmed Channel = "confirmed_muted"
)

type RouterConfig struct {
	PolicyParameter string
	MuteParameter   string
}

// Router maps OSC messages onto a Sink. Each channel forwards only value
// changes; the first value seen on a channel always counts as a change.
type Router struct {
	sink       Sink
	policyAddr string
	muteAddr   string

	mu         sync.Mutex
	last       map[Channel]bool
	onConfirm  []func(bool)
	onAttach   []func()
	attached   bool
	dropped    uint64
	dispatched uint64
}

func NewRouter(sink Sink, cfg RouterConfig) *Router {
	policy := strings.TrimSpace(cfg.PolicyParameter)
	if policy == "" {
		policy = DefaultPolicyParameter
	}
	mute := strings.TrimSpace(cfg.MuteParameter)
	if mute == "" {
		mute = DefaultMuteParameter
	}
	return &Router{
		sink:       sink,
		policyAddr: ParameterPrefix + policy,
		muteAddr:   ParameterPrefix + mute,
		last:       make(map[Channel]bool),
	}
}

// OnConfirmed registers fn for every deduplicated confirmation change. It
// runs before the sink sees the change.
func (r *Router) OnConfirmed(fn func(muted bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConfirm = append(r.onConfirm, fn)
}

// OnAttach registers fn to run the first time the host shows up.
func (r *Router) OnAttach(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAttach = append(r.onAttach, fn)
}

func (r *Router) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attached
}

// Stats returns counts of forwarded and ignored messages.
func (r *Router) Stats() (dispatched, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatched, r.dropped
}

// Handle routes one message. Unknown addresses are ignored.
func (r *Router) Handle(m osc.Message) error {
	switch m.Address {
	case r.policyAddr:
		return r.handleBool(ChannelPolicy, m)
	case r.muteAddr:
		return r.handleBool(ChannelConfirmed, m)
	case AvatarChangePath:
		r.markAttached()
		return nil
	default:
		return nil
	}
}

func (r *Router) handleBool(ch Channel, m osc.Message) error {
	value, err := m.FirstBool()
	if err != nil {
		return err
	}
	// Any parameter traffic means the host is up.
	r.markAttached()

	r.mu.Lock()
	prev, seen := r.last[ch]
	if seen && prev == value {
		r.dropped++
		r.mu.Unlock()
		return nil
	}
	r.last[ch] = value
	r.dispatched++
	var hooks []func(bool)
	if ch == ChannelConfirmed {
		hooks = append(hooks, r.onConfirm...)
	}
	r.mu.Unlock()

	log.Debug().Str("channel", string(ch)).Bool("value", value).Msg("signal.Router.change")
	for _, fn := range hooks {
		fn(value)
	}
	if ch == ChannelPolicy {
		return r.sink.PolicyChanged(value)
	}
	return r.sink.ConfirmedMutedChanged(value)
}

func (r *Router) markAttached() {
	r.mu.Lock()
	if r.attached {
		r.mu.Unlock()
		return
	}
	r.attached = true
	hooks := append([]func(){}, r.onAttach...)
	r.mu.Unlock()

	log.Info().Msg("signal.Router.attached")
	for _, fn := range hooks {
		fn()
	}
}
