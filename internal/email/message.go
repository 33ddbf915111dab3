// Package email defines the message data model shared by the forwarder's
// parsing, routing, and composition stages.
package email

import "strings"

// Incoming is the part of a mail-received notification the forwarder acts on.
type Incoming struct {
	// MessageID is the receipt identifier, also the storage lookup key suffix.
	MessageID string

	// Recipients lists the original envelope recipients in receipt order.
	// Only the first one is used for routing.
	Recipients []string
}

// Message is a parsed inbound message.
type Message struct {
	From    string
	To      string
	Date    string
	Subject string

	// Multipart reports whether the top-level body is a multipart container.
	Multipart bool

	// ContentType and Body hold the decoded top-level payload of a
	// single-part message. Both are empty for multipart messages.
	ContentType string
	Body        []byte

	// Parts holds the leaf parts of a multipart message in document order.
	Parts []Part
}

// Part is a single MIME body part.
type Part struct {
	// ContentType is the media type, e.g. "text/plain" or "application/pdf".
	ContentType string

	// ContentTypeHeader is the raw Content-Type header value, parameters
	// included, or empty. Attachments are re-sent with it unchanged.
	ContentTypeHeader string

	// Disposition is the raw Content-Disposition header value, or empty.
	Disposition string

	// Content is the payload with any transfer encoding removed.
	Content []byte
}

// IsAttachment reports whether the part's disposition marks it as an attachment.
func (p Part) IsAttachment() bool {
	return strings.Contains(strings.ToLower(p.Disposition), "attachment")
}

// Text returns the content as a string with invalid UTF-8 sequences dropped.
func (p Part) Text() string {
	return strings.ToValidUTF8(string(p.Content), "")
}

// Forward is a message assembled for re-sending to a forward destination.
type Forward struct {
	From    string
	To      string
	Subject string
	Parts   []Part
}
