// Package provider defines the interface for outbound mail delivery backends.
package provider

import "context"

// Provider is the interface that email delivery backends must implement.
// Each provider hands a fully serialized MIME message to its target
// service (e.g., Amazon SES, Microsoft Graph, stdout).
type Provider interface {
	// Send delivers raw to the given recipients with from as the envelope
	// sender. It returns an error if the delivery fails.
	Send(ctx context.Context, from string, to []string, raw []byte) error

	// Name returns the human-readable name of this provider.
	Name() string
}
