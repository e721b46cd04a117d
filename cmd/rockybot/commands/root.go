// Package commands defines all Cobra CLI commands for the rockybot binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/rockybot-go/internal/audit"
	"github.com/54b3r/rockybot-go/internal/config"
	"github.com/54b3r/rockybot-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// envFile holds the --env-file flag value.
var envFile string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rockybot",
		Short: "RockyBot, a news research assistant",
		Long: `RockyBot builds a searchable knowledge base from news article URLs and
answers questions about them, citing the articles it used.

Providers are selected with LLM_PROVIDER and EMBEDDING_PROVIDER, a .env file,
or a YAML config file (~/.rockybot/config.yaml).
See 'rockybot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Precedence: env > .env > YAML. Both loaders skip keys already set.
			if _, err := config.LoadDotEnv(envFile, log); err != nil {
				return err
			}
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.rockybot/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultDotEnv, "Path to a dotenv file")

	root.AddCommand(
		NewServeCmd(),
		NewProcessCmd(),
		NewAskCmd(),
		NewClearCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
	)

	return root
}
