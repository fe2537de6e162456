package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/cache"
	"github.com/firefly-engineering/adminmux/internal/gateway"
	"github.com/firefly-engineering/adminmux/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Listens for telnet clients and runs the gateway until interrupted.

Backends, users and authorization come from the config file. Session
audit events are written under <state_dir>/audit.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := cfg.SessionDeps()
	if err != nil {
		return err
	}
	deps.Cache = cache.New()
	deps.Dial = backend.Dial
	deps.Audit = audit.NewLogger(cfg.StateDir)

	for _, name := range unservedBackends(cfg.Backends, deps.Authz) {
		logging.Warn("backend has no authorized users", "backend", name)
	}

	logging.Info("starting gateway",
		"listen", cfg.Listen,
		"backends", len(cfg.Backends),
		"users", len(cfg.Users),
		"state_dir", cfg.StateDir)

	srv := gateway.New(cfg.Listen, deps,
		gateway.WithTick(cfg.Timing.Tick),
		gateway.WithWait(cfg.Timing.Wait))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info("gateway stopped")
		return nil
	}
	return err
}

// unservedBackends returns the configured backends no user may reach.
func unservedBackends(backends []backend.Backend, authz *auth.Authorization) []string {
	served := make(map[string]bool)
	for _, name := range authz.Backends() {
		served[name] = true
	}
	var out []string
	for _, b := range backends {
		if !served[b.Name] {
			out = append(out, b.Name)
		}
	}
	return out
}
