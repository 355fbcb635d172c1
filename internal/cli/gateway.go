package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bedrockctl/internal/common/execx"
	"bedrockctl/internal/installer"
	"bedrockctl/internal/prereq"
	"bedrockctl/internal/supervisor"
)

func newGatewayCmd(app *App) *cobra.Command {
	var (
		installOnly bool
		runOnly     bool
		background  bool
		port        int
	)

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Install dependencies and run the Bedrock access gateway",
		Example: "  bedrockctl gateway\n" +
			"  bedrockctl gateway --background --port 8000\n" +
			"  bedrockctl gateway --install-only",
		RunE: func(cmd *cobra.Command, args []string) error {
			if installOnly && runOnly {
				return fmt.Errorf("--install-only and --run-only are mutually exclusive")
			}
			ctx := cmd.Context()

			checker := prereq.New(app.Cfg.Region)
			account, err := checker.CheckCredentials(ctx)
			if err != nil {
				if prereq.IsNotInstalled(err) {
					return fmt.Errorf("aws cli is not installed: %w", err)
				}
				if prereq.IsNotConfigured(err) {
					return fmt.Errorf("aws credentials are not configured, run \"bedrockctl check --configure\": %w", err)
				}
				return err
			}
			app.Log.Info().Str("account", account).Msg("aws credentials verified")

			if !runOnly {
				in := installer.New(app.Log)
				pm := installer.DetectPackageManager(execx.System())
				if err := in.EnsureSystemTools(ctx, pm, "git", "python3"); err != nil {
					app.Log.Warn().Err(err).Msg("could not install system tools, continuing")
				}
				if err := in.SyncRepository(ctx, installer.GatewayRepoURL, app.Cfg.RepoDir); err != nil {
					return err
				}
				if err := in.InstallDependencies(ctx, installer.GatewayPins); err != nil {
					return err
				}
			}
			if installOnly {
				app.Log.Info().Msg("install complete")
				return nil
			}

			if port == 0 {
				port = app.Cfg.Port
			}
			sup := supervisor.New(supervisor.NewFileStore(app.Cfg.RunDir), app.Cfg.RepoDir, app.Cfg.RunDir, app.Cfg.APIKey, app.Log)
			mode := supervisor.Foreground
			if background {
				mode = supervisor.Background
			}
			proc, err := sup.Start(ctx, port, mode)
			if err != nil {
				if supervisor.IsPortInUse(err) {
					return fmt.Errorf("port %d is already taken: %w", port, err)
				}
				return err
			}
			if mode == supervisor.Background {
				fmt.Fprintf(cmd.OutOrStdout(), "gateway started: pid=%d port=%d log=%s\n", proc.PID, proc.Port, proc.LogPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&installOnly, "install-only", false, "Sync the repository and install dependencies, then exit")
	cmd.Flags().BoolVar(&runOnly, "run-only", false, "Skip installation and start the gateway directly")
	cmd.Flags().BoolVar(&background, "background", false, "Detach the gateway and return immediately")
	cmd.Flags().IntVar(&port, "port", 0, "Gateway listen port (default 8000)")

	cmd.AddCommand(newGatewayStopCmd(app), newGatewayStatusCmd(app))
	return cmd
}

func newGatewayStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a background gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := supervisor.NewFileStore(app.Cfg.RunDir)
			rec, ok, err := store.Load()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no background gateway is recorded in %s", app.Cfg.RunDir)
			}
			sup := supervisor.New(store, app.Cfg.RepoDir, app.Cfg.RunDir, app.Cfg.APIKey, app.Log)
			if err := sup.Stop(rec); err != nil {
				if supervisor.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "gateway process already gone, record cleared")
					return nil
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gateway stopped: pid=%d\n", rec.PID)
			return nil
		},
	}
}

func newGatewayStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the gateway is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := supervisor.NewFileStore(app.Cfg.RunDir)
			sup := supervisor.New(store, app.Cfg.RepoDir, app.Cfg.RunDir, app.Cfg.APIKey, app.Log)
			state, rec := sup.Status(cmd.Context())
			switch state {
			case supervisor.StateRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "running: pid=%d port=%d since=%s\n", rec.PID, rec.Port, rec.StartedAt.Format("2006-01-02 15:04:05"))
			case supervisor.StateStale:
				fmt.Fprintf(cmd.OutOrStdout(), "stale: pid=%d is alive but port %d is not answering\n", rec.PID, rec.Port)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			}
			return nil
		},
	}
}
