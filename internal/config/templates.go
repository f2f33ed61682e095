package config

import (
	"fmt"
	"os"
)

// Template returns the commented default configuration file.
func Template() string {
	return defaultTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# radiomute configuration

[reconcile]
# Unmute debounce window and convergence recheck interval.
delay = "150ms"
# Warn every N consecutive re-issued commands. 0 disables.
retry_warn_after = 20

[osc]
listen_addr = "127.0.0.1:9001"
send_addr = "127.0.0.1:9000"
policy_parameter = "RadioAtHead"
mute_parameter = "MuteSelf"
pulse_hold = "50ms"
# How long a voice press waits for the host to report MuteSelf before the
# button may be pressed again. Must be at least reconcile.delay.
press_settle = "500ms"
assume_attached = false
# Retry pacing when listen_addr cannot be bound.
rebind_initial = "500ms"
rebind_max = "10s"

[exec]
# Optional host commands run alongside the OSC voice button.
mute = []
unmute = []
timeout = "5s"

[mirror]
# Press a second voice client's toggle hotkey when the mute state changes.
enabled = false
command = ["xdotool", "key", "shift+F20"]

[admin]
# Empty disables the HTTP admin surface.
addr = ""
cors_origins = ["http://localhost:3000"]
token = ""

[service]
heartbeat = "30s"
`
