package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bedrockctl/internal/bedrock"
	"bedrockctl/internal/gateway"
	"bedrockctl/internal/imagegen"
	"bedrockctl/pkg/types"
)

func (a *App) gatewayClient() *gateway.Client {
	return gateway.New(a.Cfg.GatewayBaseURL, a.Cfg.APIKey, a.Log)
}

func newChatCmd(app *App) *cobra.Command {
	var (
		model     string
		maxTokens int
	)
	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send a prompt through the gateway and print the reply",
		Example: "  bedrockctl chat write a haiku about harbors\n" +
			"  bedrockctl chat --model anthropic.claude-3-haiku \"summarize this\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := app.gatewayClient()
			if err := client.CheckReachable(ctx); err != nil {
				return fmt.Errorf("gateway is not reachable at %s, start it with \"bedrockctl gateway\": %w", app.Cfg.GatewayBaseURL, err)
			}
			models, err := client.ListModels(ctx)
			if err != nil {
				return err
			}
			selected, err := gateway.SelectModel(models, model)
			if err != nil {
				return err
			}
			app.Log.Info().Str("model", selected.ID).Msg("selected model")
			reply, err := client.InvokeText(ctx, selected.ID, strings.Join(args, " "), maxTokens)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Exact model id to use (default: first claude model)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Completion token cap (default 4096)")
	return cmd
}

func newImageCmd(app *App) *cobra.Command {
	var (
		model  string
		width  int
		height int
		direct bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "image [prompt...]",
		Short: "Generate an image and save it as a PNG",
		Example: "  bedrockctl image a lighthouse at dusk\n" +
			"  bedrockctl image --direct --width 512 --height 512 \"a harbor\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prompt := strings.Join(args, " ")
			if outDir == "" {
				outDir = app.Cfg.ImagesDir
			}

			var (
				backend    imagegen.Backend
				candidates []string
			)
			if direct {
				bc, err := bedrock.New(ctx, app.Cfg.Region, app.Log)
				if err != nil {
					return err
				}
				backend = &imagegen.DirectBackend{Client: bc}
				candidates = imagegen.DirectCandidates
			} else {
				client := app.gatewayClient()
				if err := client.CheckReachable(ctx); err != nil {
					return fmt.Errorf("gateway is not reachable at %s, start it with \"bedrockctl gateway\" or pass --direct: %w", app.Cfg.GatewayBaseURL, err)
				}
				backend = &imagegen.GatewayBackend{Client: client}
				candidates = imagegen.GatewayCandidates
			}

			gen := imagegen.New(backend, candidates, outDir, app.Log)
			res, err := gen.Generate(ctx, model, prompt, width, height)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "image saved: %s (model %s)\n", res.Path, res.ModelID)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Exact image model id (default: candidate chain)")
	cmd.Flags().IntVar(&width, "width", 1024, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", 1024, "Image height in pixels")
	cmd.Flags().BoolVar(&direct, "direct", false, "Invoke Bedrock directly instead of the gateway")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory to write images into (default: images_dir)")
	return cmd
}

func newModelsCmd(app *App) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var models []types.ModelDescriptor
			switch source {
			case "gateway":
				client := app.gatewayClient()
				var err error
				models, err = client.ListModels(ctx)
				if err != nil {
					return err
				}
			case "bedrock":
				bc, err := bedrock.New(ctx, app.Cfg.Region, app.Log)
				if err != nil {
					return err
				}
				models, err = bc.ListModels(ctx)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown --source %q, want gateway or bedrock", source)
			}
			for i, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d. %-60s %s\n", i+1, m.ID, m.Capability)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d models\n", len(models))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "gateway", "Listing source: gateway|bedrock")
	return cmd
}
