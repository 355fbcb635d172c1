package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bedrockctl/internal/prereq"
	"bedrockctl/internal/s3tools"
)

func newCheckCmd(app *App) *cobra.Command {
	var configure bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the AWS CLI and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checker := prereq.New(app.Cfg.Region)
			account, err := checker.CheckCredentials(ctx)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "credentials ok: account %s, region %s\n", account, app.Cfg.Region)
				return nil
			}
			if prereq.IsNotInstalled(err) {
				return fmt.Errorf("aws cli is not installed: %w", err)
			}
			if !prereq.IsNotConfigured(err) {
				return err
			}
			if !configure {
				return fmt.Errorf("aws credentials are not configured, re-run with --configure: %w", err)
			}
			if err := checker.Configure(ctx); err != nil {
				return err
			}
			account, err = checker.CheckCredentials(ctx)
			if err != nil {
				return fmt.Errorf("credentials still invalid after configure: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credentials ok: account %s, region %s\n", account, app.Cfg.Region)
			return nil
		},
	}
	cmd.Flags().BoolVar(&configure, "configure", false, "Run \"aws configure\" when credentials are missing")
	return cmd
}

func newBucketsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List S3 buckets visible to the current credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := s3tools.New(ctx, app.Cfg.Region)
			if err != nil {
				return err
			}
			buckets, err := client.ListBuckets(ctx)
			if err != nil {
				return err
			}
			for i, b := range buckets {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d. %-50s %s\n", i+1, b.Name, b.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d buckets\n", len(buckets))
			return nil
		},
	}
}
