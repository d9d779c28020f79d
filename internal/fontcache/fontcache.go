// Package fontcache refreshes the system font cache after fonts change.
package fontcache

import (
	"context"
	"os/exec"

	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
)

// DefaultCommand is the fontconfig cache builder.
const DefaultCommand = "fc-cache"

// DefaultArgs forces a verbose rebuild.
var DefaultArgs = []string{"-f", "-v"}

// Refresher rebuilds the font cache. Refresh never fails the caller;
// problems are logged.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config configures a CommandRefresher.
type Config struct {
	Command string
	Args    []string
	// Disabled turns Refresh into a no-op.
	Disabled bool
	Runner   Runner
	Logger   logging.Logger
}

// CommandRefresher runs an external cache tool such as fc-cache.
type CommandRefresher struct {
	command  string
	args     []string
	disabled bool
	run      Runner
	log      logging.Logger
}

// New creates a refresher, filling unset fields with the defaults.
func New(cfg Config) *CommandRefresher {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
		if cfg.Args == nil {
			cfg.Args = DefaultArgs
		}
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &CommandRefresher{
		command:  cfg.Command,
		args:     append([]string(nil), cfg.Args...),
		disabled: cfg.Disabled,
		run:      cfg.Runner,
		log:      cfg.Logger,
	}
}

// Refresh implements Refresher.
func (r *CommandRefresher) Refresh(ctx context.Context) {
	if r.disabled {
		r.log.Debug("font cache refresh disabled")
		return
	}

	r.log.Info("refreshing font cache", "command", r.command)
	out, err := r.run(ctx, r.command, r.args...)
	if len(out) > 0 {
		r.log.Debug("font cache output", "output", string(out))
	}
	if err != nil {
		r.log.Warn("font cache refresh failed", "command", r.command, "error", err)
	}
}
