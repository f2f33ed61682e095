package actuator

import (
	"sync"

	"github.com/danmuck/radiomute/internal/tools"
	"github.com/rs/zerolog/log"
)

// DefaultMirrorCommand presses the second voice client's mute hotkey
// (RShift+F20).
var DefaultMirrorCommand = []string{"xdotool", "key", "shift+F20"}

// ToggleMirror keeps a second voice client in step with the host's mute
// state by pressing its toggle hotkey whenever the host state changes.
// The mirrored client is assumed to start unmuted.
type ToggleMirror struct {
	exec *Exec

	mu       sync.Mutex
	last     bool
	toggles  uint64
	failures uint64
}

func NewToggleMirror(runner tools.CommandRunner, command []string) *ToggleMirror {
	if len(command) == 0 {
		command = DefaultMirrorCommand
	}
	return &ToggleMirror{exec: NewExec(runner, ExecConfig{Mute: command, Unmute: command})}
}

// Observe is a confirmation hook; it toggles on every state change.
func (m *ToggleMirror) Observe(muted bool) {
	m.mu.Lock()
	if muted == m.last {
		m.mu.Unlock()
		return
	}
	m.last = muted
	m.toggles++
	m.mu.Unlock()

	var err error
	if muted {
		err = m.exec.Mute()
	} else {
		err = m.exec.Unmute()
	}
	if err != nil {
		m.mu.Lock()
		m.failures++
		m.mu.Unlock()
		log.Error().Err(err).Bool("muted", muted).Msg("actuator.ToggleMirror.observe failed")
	}
}

func (m *ToggleMirror) Toggles() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toggles
}

// Failures counts toggles whose command could not be started.
func (m *ToggleMirror) Failures() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}
