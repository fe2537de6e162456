package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/adminmux/internal/config"
	"github.com/firefly-engineering/adminmux/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "adminmux",
	Short: "Multiplexing admin gateway for game servers",
	Long: `adminmux is a telnet gateway in front of a fleet of game admin servers.

Each user logs in once and is connected to every backend they are
authorized for, with:
  - Merged log and chat panes from all backends
  - A focused backend that receives typed commands
  - Periodic status polling shared across sessions`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $ADMINMUX_CONFIG or "+config.DefaultConfigPath+")")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logError   = logging.UserError
)

// loadConfig reads the config file named by --config or the environment
// and applies environment overrides.
func loadConfig() (*config.Config, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	path := env.Config
	if configPath != "" {
		path = configPath
	}
	logging.Debug("loading config", "path", path)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Apply(env)
	return cfg, nil
}
