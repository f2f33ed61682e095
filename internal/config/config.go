package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full radiomute runtime configuration.
type Config struct {
	Reconcile ReconcileConfig
	OSC       OSCConfig
	Exec      ExecConfig
	Mirror    MirrorConfig
	Admin     AdminConfig
	Service   ServiceConfig
}

type ReconcileConfig struct {
	Delay          time.Duration
	RetryWarnAfter int
}

type OSCConfig struct {
	ListenAddr      string
	SendAddr        string
	PolicyParameter string
	MuteParameter   string
	PulseHold       time.Duration
	PressSettle     time.Duration
	AssumeAttached  bool
	RebindInitial   time.Duration
	RebindMax       time.Duration
}

type ExecConfig struct {
	Mute    []string
	Unmute  []string
	Timeout time.Duration
}

type MirrorConfig struct {
	Enabled bool
	Command []string
}

type AdminConfig struct {
	Addr        string
	CorsOrigins []string
	Token       string
}

type ServiceConfig struct {
	Heartbeat time.Duration
}

func DefaultConfig() Config {
	return Config{
		Reconcile: ReconcileConfig{
			Delay:          150 * time.Millisecond,
			RetryWarnAfter: 20,
		},
		OSC: OSCConfig{
			ListenAddr:      "127.0.0.1:9001",
			SendAddr:        "127.0.0.1:9000",
			PolicyParameter: "RadioAtHead",
			MuteParameter:   "MuteSelf",
			PulseHold:       50 * time.Millisecond,
			PressSettle:     500 * time.Millisecond,
			RebindInitial:   500 * time.Millisecond,
			RebindMax:       10 * time.Second,
		},
		Exec: ExecConfig{Timeout: 5 * time.Second},
		Mirror: MirrorConfig{
			Command: []string{"xdotool", "key", "shift+F20"},
		},
		Admin: AdminConfig{
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Service: ServiceConfig{Heartbeat: 30 * time.Second},
	}
}

type fileConfig struct {
	Reconcile struct {
		Delay          string `toml:"delay"`
		RetryWarnAfter int    `toml:"retry_warn_after"`
	} `toml:"reconcile"`
	OSC struct {
		ListenAddr      string `toml:"listen_addr"`
		SendAddr        string `toml:"send_addr"`
		PolicyParameter string `toml:"policy_parameter"`
		MuteParameter   string `toml:"mute_parameter"`
		PulseHold       string `toml:"pulse_hold"`
		PressSettle     string `toml:"press_settle"`
		AssumeAttached  bool   `toml:"assume_attached"`
		RebindInitial   string `toml:"rebind_initial"`
		RebindMax       string `toml:"rebind_max"`
	} `toml:"osc"`
	Exec struct {
		Mute    []string `toml:"mute"`
		Unmute  []string `toml:"unmute"`
		Timeout string   `toml:"timeout"`
	} `toml:"exec"`
	Mirror struct {
		Enabled bool     `toml:"enabled"`
		Command []string `toml:"command"`
	} `toml:"mirror"`
	Admin struct {
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
		Token       string   `toml:"token"`
	} `toml:"admin"`
	Service struct {
		Heartbeat string `toml:"heartbeat"`
	} `toml:"service"`
}

// Load reads a TOML file over DefaultConfig. Keys absent from the file
// keep their defaults.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return fromFile(raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := DefaultConfig()
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("config has unknown keys: %s", strings.Join(keys, ", "))
	}

	var err error
	if meta.IsDefined("reconcile", "delay") {
		if cfg.Reconcile.Delay, err = parseDuration("reconcile.delay", raw.Reconcile.Delay); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("reconcile", "retry_warn_after") {
		cfg.Reconcile.RetryWarnAfter = raw.Reconcile.RetryWarnAfter
	}

	if meta.IsDefined("osc", "listen_addr") {
		cfg.OSC.ListenAddr = strings.TrimSpace(raw.OSC.ListenAddr)
	}
	if meta.IsDefined("osc", "send_addr") {
		cfg.OSC.SendAddr = strings.TrimSpace(raw.OSC.SendAddr)
	}
	if meta.IsDefined("osc", "policy_parameter") {
		cfg.OSC.PolicyParameter = strings.TrimSpace(raw.OSC.PolicyParameter)
	}
	if meta.IsDefined("osc", "mute_parameter") {
		cfg.OSC.MuteParameter = strings.TrimSpace(raw.OSC.MuteParameter)
	}
	if meta.IsDefined("osc", "pulse_hold") {
		if cfg.OSC.PulseHold, err = parseDuration("osc.pulse_hold", raw.OSC.PulseHold); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("osc", "press_settle") {
		if cfg.OSC.PressSettle, err = parseDuration("osc.press_settle", raw.OSC.PressSettle); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("osc", "assume_attached") {
		cfg.OSC.AssumeAttached = raw.OSC.AssumeAttached
	}
	if meta.IsDefined("osc", "rebind_initial") {
		if cfg.OSC.RebindInitial, err = parseDuration("osc.rebind_initial", raw.OSC.RebindInitial); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("osc", "rebind_max") {
		if cfg.OSC.RebindMax, err = parseDuration("osc.rebind_max", raw.OSC.RebindMax); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("exec", "mute") {
		cfg.Exec.Mute = raw.Exec.Mute
	}
	if meta.IsDefined("exec", "unmute") {
		cfg.Exec.Unmute = raw.Exec.Unmute
	}
	if meta.IsDefined("exec", "timeout") {
		if cfg.Exec.Timeout, err = parseDuration("exec.timeout", raw.Exec.Timeout); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("mirror", "enabled") {
		cfg.Mirror.Enabled = raw.Mirror.Enabled
	}
	if meta.IsDefined("mirror", "command") {
		cfg.Mirror.Command = raw.Mirror.Command
	}

	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = raw.Admin.CorsOrigins
	}
	if meta.IsDefined("admin", "token") {
		cfg.Admin.Token = strings.TrimSpace(raw.Admin.Token)
	}

	if meta.IsDefined("service", "heartbeat") {
		if cfg.Service.Heartbeat, err = parseDuration("service.heartbeat", raw.Service.Heartbeat); err != nil {
			return Config{}, err
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Reconcile.Delay <= 0 {
		return fmt.Errorf("reconcile.delay must be positive, got %s", cfg.Reconcile.Delay)
	}
	if cfg.Reconcile.RetryWarnAfter < 0 {
		return fmt.Errorf("reconcile.retry_warn_after must not be negative")
	}
	if err := validateHostPort("osc.listen_addr", cfg.OSC.ListenAddr); err != nil {
		return err
	}
	if err := validateHostPort("osc.send_addr", cfg.OSC.SendAddr); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.OSC.PolicyParameter) == "" {
		return fmt.Errorf("osc.policy_parameter is required")
	}
	if strings.TrimSpace(cfg.OSC.MuteParameter) == "" {
		return fmt.Errorf("osc.mute_parameter is required")
	}
	if cfg.OSC.PulseHold < 0 {
		return fmt.Errorf("osc.pulse_hold must not be negative")
	}
	// A press must stay unconfirmed through at least one sync recheck,
	// otherwise the recheck presses the toggle a second time.
	if cfg.OSC.PressSettle < cfg.Reconcile.Delay || cfg.OSC.PressSettle < cfg.OSC.PulseHold {
		return fmt.Errorf("osc.press_settle must be at least reconcile.delay and osc.pulse_hold, got %s", cfg.OSC.PressSettle)
	}
	if cfg.OSC.RebindInitial <= 0 {
		return fmt.Errorf("osc.rebind_initial must be positive")
	}
	if cfg.OSC.RebindMax < cfg.OSC.RebindInitial {
		return fmt.Errorf("osc.rebind_max must be at least osc.rebind_initial")
	}
	if cfg.Exec.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive")
	}
	if cfg.Mirror.Enabled && len(cfg.Mirror.Command) == 0 {
		return fmt.Errorf("mirror.command is required when mirror is enabled")
	}
	if cfg.Admin.Addr != "" {
		if err := validateHostPort("admin.addr", cfg.Admin.Addr); err != nil {
			return err
		}
	}
	if cfg.Service.Heartbeat <= 0 {
		return fmt.Errorf("service.heartbeat must be positive")
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func validateHostPort(key, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s invalid: %w", key, err)
	}
	return nil
}
