package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
	"github.com/firefly-engineering/adminmux/internal/health"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every configured backend",
	Long: `Opens a TCP connection to every configured backend and reports
whether it is reachable. No credentials are sent.

Exits non-zero when any backend is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", health.DefaultTimeout, "Timeout per backend")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Backends) == 0 {
		logInfo("No backends configured")
		return nil
	}

	results := health.ProbeAll(cmd.Context(), cfg.Backends, checkTimeout)

	failed := 0
	for _, r := range results {
		if r.Status == health.StatusReachable {
			logSuccess("%s", r)
		} else {
			logError("%s", r)
			failed++
		}
	}

	if failed > 0 {
		return gwerrors.New(gwerrors.ExitTransport, gwerrors.CategoryTransport,
			fmt.Sprintf("%d of %d backends unreachable", failed, len(results)))
	}
	return nil
}
