package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shineum/ses-forwarder/internal/storage/file"
)

type invokeFlags struct {
	eventFile   string
	messagesDir string
	provider    string
	envFile     string
}

func newInvokeCmd(global *globalFlags) *cobra.Command {
	flags := &invokeFlags{}

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Process one SES event locally, reading messages from a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, global, flags)
		},
	}

	flag := cmd.Flags()
	flag.StringVarP(&flags.eventFile, "event", "e", "", "SES receipt event JSON file")
	flag.StringVarP(&flags.messagesDir, "messages", "m", ".", "directory holding raw messages under their storage keys")
	flag.StringVarP(&flags.provider, "provider", "p", "", "override the configured provider (ses, graph, stdout)")
	flag.StringVar(&flags.envFile, "env-file", "", "load environment variables from a dotenv file; existing variables win")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runInvoke(cmd *cobra.Command, global *globalFlags, flags *invokeFlags) error {
	if flags.envFile != "" {
		if err := godotenv.Load(flags.envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := loadConfig(global.configFile)
	if err != nil {
		return err
	}
	if flags.provider != "" {
		cfg.Provider = strings.ToLower(flags.provider)
	}
	setupLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	if err := cfg.Validate(false); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := os.ReadFile(flags.eventFile)
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	var evt events.SimpleEmailEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to decode event %s: %w", flags.eventFile, err)
	}

	prov, err := selectProvider(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fwd := newForwarder(cfg, file.New(flags.messagesDir), prov)

	resp, err := fwd.Handle(cmd.Context(), evt)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
