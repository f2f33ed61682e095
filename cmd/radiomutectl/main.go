// radiomutectl keeps the host's self-mute in step with the avatar's
// radio-at-head signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/danmuck/radiomute/internal/config"
	"github.com/danmuck/radiomute/internal/logging"
	"github.com/danmuck/radiomute/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	listen     string
	send       string
	admin      string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "radiomutectl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logging.ConfigureRuntime()
	if opts.logLevel != "" && !logging.SetLevel(opts.logLevel) {
		return fmt.Errorf("unknown log level %q", opts.logLevel)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info().Str("config", opts.configPath).Msg("radiomutectl starting")
	return svc.Run(ctx)
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("radiomutectl", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to TOML config (defaults are used when empty)")
	fs.StringVar(&opts.listen, "listen", "", "override osc.listen_addr")
	fs.StringVar(&opts.send, "send", "", "override osc.send_addr")
	fs.StringVar(&opts.admin, "admin", "", "override admin.addr (empty keeps the config value)")
	fs.StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error|disabled")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return opts, nil
}

// loadConfig reads the file if one was given and applies flag overrides
// before validating.
func loadConfig(opts options) (config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.listen != "" {
		cfg.OSC.ListenAddr = opts.listen
	}
	if opts.send != "" {
		cfg.OSC.SendAddr = opts.send
	}
	if opts.admin != "" {
		cfg.Admin.Addr = opts.admin
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
