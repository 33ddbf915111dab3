// Package forwarder routes received mail to its configured destination.
//
// A single invocation extracts the first original recipient from the
// receipt notification, resolves it against the routing table, fetches the
// stored raw message, rebuilds it for forwarding, and hands it to the
// outbound provider. An unmapped recipient is a normal outcome reported in
// the Result; every other failure is returned as an error without retry.
package forwarder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/shineum/ses-forwarder/internal/compose"
	"github.com/shineum/ses-forwarder/internal/email"
	"github.com/shineum/ses-forwarder/internal/parser"
	"github.com/shineum/ses-forwarder/internal/provider"
	"github.com/shineum/ses-forwarder/internal/routing"
	"github.com/shineum/ses-forwarder/internal/storage"
)

// UnknownRecipient stands in for the recipient of an event that lists none.
const UnknownRecipient = "unknown"

// Response bodies.
const (
	BodyForwarded = "Email forwarded successfully"
	BodyUnmapped  = "No forwarding mapping configured"
)

// Outcome classifies a completed invocation.
type Outcome int

const (
	// Forwarded means the message was sent to its destination.
	Forwarded Outcome = iota
	// Unmapped means the recipient has no forwarding rule; nothing was
	// fetched or sent.
	Unmapped
)

func (o Outcome) String() string {
	switch o {
	case Forwarded:
		return "forwarded"
	case Unmapped:
		return "unmapped"
	default:
		return "unknown"
	}
}

// Result describes a completed invocation.
type Result struct {
	Outcome     Outcome
	StatusCode  int
	Body        string
	Recipient   string
	Destination string
}

// Response returns the invocation result in its wire form.
func (r Result) Response() Response {
	return Response{StatusCode: r.StatusCode, Body: r.Body}
}

// Response is the value returned to the function runtime.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Options holds the collaborators and static settings of a Forwarder.
type Options struct {
	Rules routing.Table

	// Sender is the From address and envelope sender of forwarded mail.
	Sender string

	// KeyPrefix is prepended to the message ID to form the storage key.
	KeyPrefix string

	Store    storage.Store
	Provider provider.Provider
}

// Forwarder handles mail-received notifications. It holds no mutable state
// and may serve any number of invocations.
type Forwarder struct {
	rules     routing.Table
	sender    string
	keyPrefix string
	store     storage.Store
	provider  provider.Provider
}

// New creates a Forwarder from opts.
func New(opts Options) *Forwarder {
	return &Forwarder{
		rules:     opts.Rules,
		sender:    opts.Sender,
		keyPrefix: opts.KeyPrefix,
		store:     opts.Store,
		provider:  opts.Provider,
	}
}

// Handle is the function runtime entry point.
func (f *Forwarder) Handle(ctx context.Context, evt events.SimpleEmailEvent) (Response, error) {
	slog.Info("received event", "records", len(evt.Records))

	in, err := IncomingFromEvent(evt)
	if err != nil {
		slog.Error("invalid event", "error", err)
		return Response{}, err
	}

	res, err := f.Forward(ctx, in)
	if err != nil {
		return Response{}, err
	}
	return res.Response(), nil
}

// Forward processes one inbound message. Only the first recipient is
// considered. Fetch, parse, and send failures are logged and returned
// unchanged.
func (f *Forwarder) Forward(ctx context.Context, in email.Incoming) (Result, error) {
	recipient := UnknownRecipient
	if len(in.Recipients) > 0 {
		recipient = in.Recipients[0]
	}

	log := slog.With("message_id", in.MessageID, "recipient", recipient)

	destination, ok := f.rules.Resolve(recipient)
	if !ok {
		log.Warn("no forwarding mapping found")
		return Result{
			Outcome:    Unmapped,
			StatusCode: http.StatusBadRequest,
			Body:       BodyUnmapped,
			Recipient:  recipient,
		}, nil
	}

	key := f.keyPrefix + in.MessageID
	raw, err := f.store.Fetch(ctx, key)
	if err != nil {
		log.Error("error forwarding email: fetch failed", "store", f.store.Name(), "key", key, "error", err)
		return Result{}, err
	}

	msg, err := parser.Parse(raw)
	if err != nil {
		log.Error("error forwarding email: parse failed", "key", key, "error", err)
		return Result{}, err
	}

	out, err := compose.Raw(Rebuild(msg, recipient, destination, f.sender))
	if err != nil {
		log.Error("error forwarding email: compose failed", "error", err)
		return Result{}, err
	}

	if err := f.provider.Send(ctx, f.sender, []string{destination}, out); err != nil {
		log.Error("error forwarding email: send failed", "provider", f.provider.Name(), "destination", destination, "error", err)
		return Result{}, err
	}

	log.Info("successfully forwarded email",
		"destination", destination,
		"provider", f.provider.Name(),
		"size", len(out),
	)
	return Result{
		Outcome:     Forwarded,
		StatusCode:  http.StatusOK,
		Body:        BodyForwarded,
		Recipient:   recipient,
		Destination: destination,
	}, nil
}
