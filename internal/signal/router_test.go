package signal

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/radiomute/internal/protocol/osc"
	"github.com/danmuck/radiomute/internal/testutil/testlog"
)

type recordingSink struct {
	mu        sync.Mutex
	policy    []bool
	confirmed []bool
}

func (s *recordingSink) PolicyChanged(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = append(s.policy, v)
	return nil
}

func (s *recordingSink) ConfirmedMutedChanged(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, v)
	return nil
}

func (s *recordingSink) snapshot() ([]bool, []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.policy...), append([]bool(nil), s.confirmed...)
}

func param(name string, v bool) osc.Message {
	return osc.NewMessage(ParameterPrefix+name, osc.Bool(v))
}

func TestRouterDedupsPerChannel(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	r := NewRouter(sink, RouterConfig{})

	inputs := []osc.Message{
		param("RadioAtHead", false),
		param("RadioAtHead", false),
		param("MuteSelf", false),
		param("RadioAtHead", true),
		param("MuteSelf", false),
		param("MuteSelf", true),
		param("RadioAtHead", true),
		param("SomethingElse", true),
	}
	for _, m := range inputs {
		if err := r.Handle(m); err != nil {
			t.Fatalf("handle %s: %v", m.Address, err)
		}
	}

	policy, confirmed := sink.snapshot()
	if len(policy) != 2 || policy[0] || !policy[1] {
		t.Fatalf("unexpected policy events: %v", policy)
	}
	if len(confirmed) != 2 || confirmed[0] || !confirmed[1] {
		t.Fatalf("unexpected confirmation events: %v", confirmed)
	}
	dispatched, dropped := r.Stats()
	if dispatched != 4 || dropped != 3 {
		t.Fatalf("unexpected stats dispatched=%d dropped=%d", dispatched, dropped)
	}
}

func TestRouterCustomParametersAndHooks(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	r := NewRouter(sink, RouterConfig{PolicyParameter: "Radio", MuteParameter: "Mic"})

	var mirrored []bool
	attaches := 0
	r.OnConfirmed(func(v bool) { mirrored = append(mirrored, v) })
	r.OnAttach(func() { attaches++ })

	if r.Attached() {
		t.Fatalf("router attached before any traffic")
	}
	_ = r.Handle(osc.NewMessage(AvatarChangePath, osc.String("avtr_1")))
	_ = r.Handle(osc.NewMessage(ParameterPrefix+"Mic", osc.Int32(1)))
	_ = r.Handle(osc.NewMessage(ParameterPrefix+"Mic", osc.Int32(1)))
	_ = r.Handle(param("RadioAtHead", true))

	if !r.Attached() || attaches != 1 {
		t.Fatalf("expected a single attach, got attached=%v count=%d", r.Attached(), attaches)
	}
	if len(mirrored) != 1 || !mirrored[0] {
		t.Fatalf("unexpected mirrored confirmations: %v", mirrored)
	}
	policy, _ := sink.snapshot()
	if len(policy) != 0 {
		t.Fatalf("default parameter name must not route when overridden: %v", policy)
	}
}

func TestRouterRejectsNonBoolean(t *testing.T) {
	testlog.Start(t)
	r := NewRouter(&recordingSink{}, RouterConfig{})
	if err := r.Handle(osc.NewMessage(ParameterPrefix+DefaultPolicyParameter, osc.String("yes"))); err == nil {
		t.Fatalf("expected error for string argument")
	}
	if err := r.Handle(osc.NewMessage(ParameterPrefix + DefaultPolicyParameter)); err == nil {
		t.Fatalf("expected error for missing argument")
	}
}

func TestListenerDeliversPackets(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	router := NewRouter(sink, RouterConfig{})
	decodeErrs := make(chan error, 1)
	l, err := Listen("127.0.0.1:0", router, func(err error) { decodeErrs <- err })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("garbage")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	packet, err := osc.EncodeBundle(param(DefaultPolicyParameter, true), param(DefaultMuteParameter, true))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-decodeErrs:
	case <-time.After(2 * time.Second):
		t.Fatalf("decode error not reported")
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		policy, confirmed := sink.snapshot()
		if len(policy) == 1 && len(confirmed) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("packets not delivered: policy=%v confirmed=%v", policy, confirmed)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop on cancel")
	}
}
