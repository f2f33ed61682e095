// Package service wires the OSC transport, actuators, reconciler and
// admin surface into one long-running process.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/radiomute/internal/actuator"
	"github.com/danmuck/radiomute/internal/clock"
	"github.com/danmuck/radiomute/internal/config"
	"github.com/danmuck/radiomute/internal/mute"
	"github.com/danmuck/radiomute/internal/observability"
	"github.com/danmuck/radiomute/internal/signal"
	"github.com/danmuck/radiomute/internal/tools"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyRunning = errors.New("service: already running")

// Service owns one reconciler and the transports feeding it.
type Service struct {
	cfg    config.Config
	clock  clock.Clock
	rebind RebindPolicy
	runner tools.CommandRunner

	reconciler *mute.Reconciler
	router     *signal.Router
	voice      *actuator.OSCVoice
	sender     *actuator.UDPSender
	mirror     *actuator.ToggleMirror

	mu         sync.Mutex
	running    bool
	listenAddr net.Addr
	adminAddr  net.Addr
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithRunner(r tools.CommandRunner) Option {
	return func(s *Service) { s.runner = r }
}

func WithRebind(p RebindPolicy) Option {
	return func(s *Service) { s.rebind = p }
}

// New builds the component graph without opening the inbound socket.
func New(cfg config.Config, opts ...Option) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:    cfg,
		clock:  clock.Real(),
		rebind: rebindPolicyFromConfig(cfg),
		runner: tools.ExecRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}

	sender, err := actuator.DialUDP(cfg.OSC.SendAddr)
	if err != nil {
		return nil, err
	}
	s.sender = sender
	s.voice = actuator.NewOSCVoice(sender, s.clock, cfg.VoiceConfig())
	s.voice.SetAttached(cfg.OSC.AssumeAttached)

	act := actuator.Multi{s.voice}
	if execAct := actuator.NewExec(s.runner, cfg.ExecActuatorConfig()); execAct.Configured() {
		act = append(act, execAct)
	}

	rec, err := mute.New(act, cfg.ReconcilerConfig(s.clock, observability.NewRecorder()))
	if err != nil {
		_ = sender.Close()
		return nil, err
	}
	s.reconciler = rec

	s.router = signal.NewRouter(rec, cfg.RouterConfig())
	s.router.OnAttach(func() { s.voice.SetAttached(true) })
	s.router.OnConfirmed(s.voice.Observe)
	if cfg.Mirror.Enabled {
		s.mirror = actuator.NewToggleMirror(s.runner, cfg.Mirror.Command)
		s.router.OnConfirmed(s.mirror.Observe)
	}
	return s, nil
}

func (s *Service) Reconciler() *mute.Reconciler {
	return s.reconciler
}

func (s *Service) Router() *signal.Router {
	return s.router
}

// ListenAddr is the bound OSC address once Run has started listening.
func (s *Service) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

func (s *Service) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminAddr
}

// Run blocks until ctx is done or the admin server fails. The reconciler
// is shut down before transports close.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeOutbound()

	adminErr := make(chan error, 1)
	if s.cfg.Admin.Addr != "" {
		srv, err := s.startAdmin(ctx, adminErr)
		if err != nil {
			return err
		}
		defer shutdownHTTP(srv)
	}

	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		s.runListenerLoop(ctx)
	}()
	defer func() {
		cancel()
		<-listenDone
	}()

	ticker := s.clock.NewTicker(s.cfg.Service.Heartbeat)
	defer ticker.Stop()

	log.Info().
		Str("listen", s.cfg.OSC.ListenAddr).
		Str("send", s.cfg.OSC.SendAddr).
		Str("admin", s.cfg.Admin.Addr).
		Dur("delay", s.cfg.Reconcile.Delay).
		Msg("service.Service.run ready")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("service.Service.run shutdown")
			return nil
		case err := <-adminErr:
			return err
		case <-ticker.C:
			s.heartbeat()
		}
	}
}

// closeOutbound stops the reconciler, lets go of a held voice press and
// only then closes the socket the release travels over.
func (s *Service) closeOutbound() {
	s.reconciler.Shutdown()
	if err := s.voice.Release(); err != nil {
		log.Warn().Err(err).Msg("service.Service.shutdown voice release failed")
	}
	if err := s.sender.Close(); err != nil {
		log.Warn().Err(err).Msg("service.Service.shutdown sender close failed")
	}
}

// runListenerLoop keeps the OSC socket bound, rebinding with backoff when
// bind or read fails.
func (s *Service) runListenerLoop(ctx context.Context) {
	bo := s.rebind.newBackOff(s.clock)
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		l, err := signal.Listen(s.cfg.OSC.ListenAddr, s.router, observability.RecordDecodeError)
		if err == nil {
			attempt = 0
			bo.Reset()
			s.mu.Lock()
			s.listenAddr = l.Addr()
			s.mu.Unlock()
			log.Info().Str("addr", l.Addr().String()).Msg("service.Service.listener bound")
			err = l.Serve(ctx)
			_ = l.Close()
			if err == nil {
				return
			}
		}
		attempt++
		delay := bo.NextBackOff()
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("service.Service.listener failed")
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}
	}
}

func (s *Service) startAdmin(ctx context.Context, errs chan<- error) (*http.Server, error) {
	ln, err := net.Listen("tcp", s.cfg.Admin.Addr)
	if err != nil {
		return nil, fmt.Errorf("service: admin listen %s: %w", s.cfg.Admin.Addr, err)
	}
	s.mu.Lock()
	s.adminAddr = ln.Addr()
	s.mu.Unlock()

	router := observability.NewAdminRouter(observability.AdminConfig{
		Node:        "radiomute",
		CorsOrigins: s.cfg.Admin.CorsOrigins,
		Token:       s.cfg.Admin.Token,
	}, s.reconciler, s.router)
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("service: admin serve: %w", err)
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("service.Service.admin listening")
	return srv, nil
}

func (s *Service) heartbeat() {
	snap := s.reconciler.Snapshot()
	dispatched, dropped := s.router.Stats()
	log.Info().
		Str("phase", string(snap.Phase)).
		Bool("converged", snap.Converged).
		Bool("attached", s.router.Attached()).
		Int("resyncs", snap.State.Resyncs).
		Uint64("mutes", snap.Counters.Mutes).
		Uint64("unmutes", snap.Counters.Unmutes).
		Uint64("signals", dispatched).
		Uint64("duplicates", dropped).
		Msg("service.Service.heartbeat")
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("service.Service.admin shutdown")
	}
}
