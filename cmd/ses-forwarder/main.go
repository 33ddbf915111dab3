// Package main is the entry point for the SES mail forwarder.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("ses-forwarder failed", "error", err)
		os.Exit(1)
	}
}
