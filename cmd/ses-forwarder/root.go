package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/shineum/ses-forwarder/internal/config"
	"github.com/shineum/ses-forwarder/internal/forwarder"
	"github.com/shineum/ses-forwarder/internal/provider"
	"github.com/shineum/ses-forwarder/internal/provider/graph"
	"github.com/shineum/ses-forwarder/internal/provider/ses"
	"github.com/shineum/ses-forwarder/internal/provider/stdout"
	"github.com/shineum/ses-forwarder/internal/routing"
	"github.com/shineum/ses-forwarder/internal/storage"
	"github.com/shineum/ses-forwarder/internal/storage/s3"
)

type globalFlags struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	global := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "ses-forwarder",
		Short: "Forward mail received by SES to per-recipient destinations",
		Long: "\nForward mail received by SES to per-recipient destinations.\n\n" +
			"Without a subcommand the process serves Lambda invocations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd.Context(), global)
		},
	}

	cmd.PersistentFlags().StringVarP(&global.configFile, "config", "c", "", "path to YAML configuration file (optional)")
	cmd.AddCommand(newInvokeCmd(global))
	return cmd
}

func runLambda(ctx context.Context, global *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(global.configFile)
	if err != nil {
		return err
	}
	setupLogger(cfg.Logging.Level, os.Stdout)

	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := s3.New(ctx, s3.StoreConfig{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 store: %w", err)
	}

	prov, err := selectProvider(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}

	fwd := newForwarder(cfg, store, prov)

	slog.Info("starting ses-forwarder",
		"provider", prov.Name(),
		"bucket", cfg.Storage.Bucket,
		"prefix", cfg.Storage.Prefix,
		"rules", len(cfg.Forward.Mapping),
	)
	lambda.Start(fwd.Handle)
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func newForwarder(cfg *config.Config, store storage.Store, prov provider.Provider) *forwarder.Forwarder {
	return forwarder.New(forwarder.Options{
		Rules:     routing.NewTable(cfg.Forward.Mapping),
		Sender:    cfg.Forward.Sender,
		KeyPrefix: cfg.Storage.Prefix,
		Store:     store,
		Provider:  prov,
	})
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string, w io.Writer) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// selectProvider builds the delivery backend named by cfg.Provider. The
// stdout provider writes to out.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderSES:
		slog.Info("using AWS SES provider", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderGraph:
		if !cfg.GraphConfigured() {
			return nil, fmt.Errorf("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, and GRAPH_CLIENT_SECRET are required")
		}
		slog.Info("using Microsoft Graph provider", "sender", cfg.Forward.Sender)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
		}), nil

	case config.ProviderStdout:
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
