package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTemplateParsesToDefaults(t *testing.T) {
	cfg, err := Parse(Template())
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	def := DefaultConfig()
	if cfg.Reconcile != def.Reconcile || cfg.OSC != def.OSC || cfg.Service != def.Service {
		t.Fatalf("template drifted from defaults:\n got %+v\nwant %+v", cfg, def)
	}
	if cfg.Mirror.Enabled || strings.Join(cfg.Mirror.Command, " ") != "xdotool key shift+F20" {
		t.Fatalf("unexpected mirror config: %+v", cfg.Mirror)
	}
}

func TestParseOverridesOnlyDefinedKeys(t *testing.T) {
	cfg, err := Parse(`
[reconcile]
delay = "200ms"

[osc]
policy_parameter = "RadioNearHead"
assume_attached = true

[exec]
mute = ["pactl", "set-source-mute", "@DEFAULT_SOURCE@", "1"]

[admin]
addr = "127.0.0.1:9310"
token = " secret "
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Reconcile.Delay != 200*time.Millisecond {
		t.Fatalf("unexpected delay: %s", cfg.Reconcile.Delay)
	}
	if cfg.Reconcile.RetryWarnAfter != 20 {
		t.Fatalf("undefined key must keep default, got %d", cfg.Reconcile.RetryWarnAfter)
	}
	if cfg.OSC.PolicyParameter != "RadioNearHead" || cfg.OSC.MuteParameter != "MuteSelf" || !cfg.OSC.AssumeAttached {
		t.Fatalf("unexpected osc config: %+v", cfg.OSC)
	}
	if len(cfg.Exec.Mute) != 4 || len(cfg.Exec.Unmute) != 0 {
		t.Fatalf("unexpected exec config: %+v", cfg.Exec)
	}
	if cfg.Admin.Addr != "127.0.0.1:9310" || cfg.Admin.Token != "secret" {
		t.Fatalf("unexpected admin config: %+v", cfg.Admin)
	}

	rc := cfg.ReconcilerConfig(nil, nil)
	if rc.Delay != cfg.Reconcile.Delay || rc.RetryWarnAfter != 20 {
		t.Fatalf("unexpected reconciler config: %+v", rc)
	}
	if cfg.RouterConfig().PolicyParameter != "RadioNearHead" {
		t.Fatalf("unexpected router config: %+v", cfg.RouterConfig())
	}
	if vc := cfg.VoiceConfig(); vc.Hold != 50*time.Millisecond || vc.Settle != 500*time.Millisecond {
		t.Fatalf("unexpected voice config: %+v", vc)
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "bad duration", data: "[reconcile]\ndelay = \"soon\"\n", want: "reconcile.delay"},
		{name: "zero delay", data: "[reconcile]\ndelay = \"0s\"\n", want: "must be positive"},
		{name: "bad listen addr", data: "[osc]\nlisten_addr = \"9001\"\n", want: "osc.listen_addr"},
		{name: "empty parameter", data: "[osc]\nmute_parameter = \"\"\n", want: "osc.mute_parameter"},
		{name: "mirror without command", data: "[mirror]\nenabled = true\ncommand = []\n", want: "mirror.command"},
		{name: "settle shorter than delay", data: "[reconcile]\ndelay = \"300ms\"\n[osc]\npress_settle = \"200ms\"\n", want: "osc.press_settle"},
		{name: "rebind max below initial", data: "[osc]\nrebind_initial = \"2s\"\nrebind_max = \"1s\"\n", want: "osc.rebind_max"},
		{name: "unknown key", data: "[osc]\nlisten = \"x\"\n", want: "unknown keys"},
		{name: "syntax", data: "[osc\n", want: "config parse failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.data)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestWriteTemplateAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radiomute.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode: %v", info.Mode().Perm())
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
