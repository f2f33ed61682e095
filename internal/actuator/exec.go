package actuator

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/radiomute/internal/tools"
	"github.com/rs/zerolog/log"
)

const DefaultExecTimeout = 5 * time.Second

// Exec runs a host command per mute command. Commands run in their own
// goroutine; the outcome is only logged.
type Exec struct {
	runner  tools.CommandRunner
	mute    []string
	unmute  []string
	timeout time.Duration
}

type ExecConfig struct {
	Mute    []string
	Unmute  []string
	Timeout time.Duration
}

func NewExec(runner tools.CommandRunner, cfg ExecConfig) *Exec {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExecTimeout
	}
	return &Exec{
		runner:  runner,
		mute:    normalizeArgv(cfg.Mute),
		unmute:  normalizeArgv(cfg.Unmute),
		timeout: cfg.Timeout,
	}
}

// Configured reports whether either command is set.
func (e *Exec) Configured() bool {
	return len(e.mute) > 0 || len(e.unmute) > 0
}

func (e *Exec) Mute() error { return e.start(e.mute) }
func (e *Exec) Unmute() error { return e.start(e.unmute) }

func (e *Exec) start(argv []string) error {
	if len(argv) == 0 {
		return ErrUnavailable
	}
	go e.run(argv)
	return nil
}

func (e *Exec) run(argv []string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	res, err := e.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		log.Error().
			Err(err).
			Strs("argv", argv).
			Int32("exit_code", res.ExitCode).
			Str("stderr", strings.TrimSpace(string(res.Stderr))).
			Msg("actuator.Exec.run failed")
	} else {
		log.Debug().Strs("argv", argv).Dur("elapsed", res.Elapsed).Msg("actuator.Exec.run")
	}
}

func normalizeArgv(in []string) []string {
	out := make([]string, 0, len(in))
	for _, arg := range in {
		if v := strings.TrimSpace(arg); v != "" {
			out = append(out, v)
		}
	}
	return out
}
