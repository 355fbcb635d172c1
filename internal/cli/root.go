// Package cli wires the bedrockctl command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bedrockctl/internal/config"
)

// App carries the resolved configuration and logger shared by all commands.
type App struct {
	Cfg config.Config
	Log zerolog.Logger
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// BuildRootCmd constructs the full command tree.
func BuildRootCmd() *cobra.Command {
	app := &App{}
	var (
		configPath string
		logLevel   string
		region     string
		apiKey     string
	)

	root := &cobra.Command{
		Use:           "bedrockctl",
		Short:         "Run and talk to a local Bedrock access gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace|debug|info|warn|error")
	root.PersistentFlags().StringVar(&region, "region", "", "AWS region (defaults AWS_REGION or us-east-1)")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "Bearer token for the gateway (defaults API_KEY or \"bedrock\")")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.Log = newLogger(logLevel)
		if configPath != "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.Cfg = cfg
		}
		// Environment fills gaps, flags win.
		if app.Cfg.Region == "" {
			app.Cfg.Region = os.Getenv("AWS_REGION")
		}
		if app.Cfg.APIKey == "" {
			app.Cfg.APIKey = os.Getenv("API_KEY")
		}
		if region != "" {
			app.Cfg.Region = region
		}
		if apiKey != "" {
			app.Cfg.APIKey = apiKey
		}
		app.Cfg.ApplyDefaults()
		return nil
	}

	root.AddCommand(
		newGatewayCmd(app),
		newChatCmd(app),
		newImageCmd(app),
		newModelsCmd(app),
		newCheckCmd(app),
		newBucketsCmd(app),
		newGalleryCmd(app),
	)
	return root
}

// Execute runs the tree and maps errors to the process exit code.
func Execute() int {
	root := BuildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
