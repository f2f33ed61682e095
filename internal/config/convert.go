package config

import (
	"github.com/danmuck/radiomute/internal/actuator"
	"github.com/danmuck/radiomute/internal/clock"
	"github.com/danmuck/radiomute/internal/mute"
	"github.com/danmuck/radiomute/internal/signal"
)

func (c Config) ReconcilerConfig(clk clock.Clock, observer mute.Observer) mute.Config {
	return mute.Config{
		Delay:          c.Reconcile.Delay,
		RetryWarnAfter: c.Reconcile.RetryWarnAfter,
		Clock:          clk,
		Observer:       observer,
	}
}

func (c Config) RouterConfig() signal.RouterConfig {
	return signal.RouterConfig{
		PolicyParameter: c.OSC.PolicyParameter,
		MuteParameter:   c.OSC.MuteParameter,
	}
}

func (c Config) ExecActuatorConfig() actuator.ExecConfig {
	return actuator.ExecConfig{
		Mute:    c.Exec.Mute,
		Unmute:  c.Exec.Unmute,
		Timeout: c.Exec.Timeout,
	}
}

func (c Config) VoiceConfig() actuator.VoiceConfig {
	return actuator.VoiceConfig{
		Hold:   c.OSC.PulseHold,
		Settle: c.OSC.PressSettle,
	}
}
