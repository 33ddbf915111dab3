// Package parser provides RFC 5322 email message parsing with MIME multipart support.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime/quotedprintable"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/shineum/ses-forwarder/internal/email"
)

// rawParser leaves part content exactly as it appears on the wire.
var rawParser = enmime.NewParser(enmime.RawContent(true))

// Parse parses a raw RFC 5322 message into an email.Message.
//
// Header fields are RFC 2047 decoded. Multipart bodies are flattened into
// their leaf parts in document order with transfer encodings removed. Text
// bodies are converted to UTF-8; attachments keep their original bytes,
// whatever their media type. Recoverable MIME defects are logged as
// warnings and do not fail the parse.
func Parse(raw []byte) (*email.Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if env.Root == nil {
		return nil, fmt.Errorf("failed to parse message: no root part")
	}

	for _, perr := range env.Errors {
		slog.Warn("recoverable MIME defect",
			"name", perr.Name,
			"detail", perr.Detail,
			"severe", perr.Severe,
		)
	}

	msg := &email.Message{
		From:    env.GetHeader("From"),
		To:      env.GetHeader("To"),
		Date:    env.GetHeader("Date"),
		Subject: env.GetHeader("Subject"),
	}

	root := env.Root
	if !isMultipart(root) {
		msg.ContentType = root.ContentType
		msg.Body = root.Content
		return msg, nil
	}

	msg.Multipart = true
	leaves := collectLeaves(root, nil)

	// The default parser converts every text/* part to UTF-8, attachments
	// included. Those are re-read from the untouched tree.
	var rawLeaves []*enmime.Part
	for i, leaf := range leaves {
		part := email.Part{
			ContentType:       strings.ToLower(leaf.ContentType),
			ContentTypeHeader: leaf.Header.Get("Content-Type"),
			Disposition:       leaf.Header.Get("Content-Disposition"),
			Content:           leaf.Content,
		}

		if part.IsAttachment() && strings.HasPrefix(part.ContentType, "text/") {
			if rawLeaves == nil {
				rawRoot, err := rawParser.ReadParts(bytes.NewReader(raw))
				if err != nil {
					return nil, fmt.Errorf("failed to re-read attachments: %w", err)
				}
				rawLeaves = collectLeaves(rawRoot, nil)
				if len(rawLeaves) != len(leaves) {
					return nil, fmt.Errorf("failed to re-read attachments: found %d parts, want %d", len(rawLeaves), len(leaves))
				}
			}

			content, err := decodeTransfer(rawLeaves[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode attachment %d: %w", i, err)
			}
			part.Content = content
		}

		msg.Parts = append(msg.Parts, part)
	}
	return msg, nil
}

// collectLeaves appends the leaf parts below p in depth-first order.
func collectLeaves(p *enmime.Part, leaves []*enmime.Part) []*enmime.Part {
	for child := p.FirstChild; child != nil; child = child.NextSibling {
		if child.FirstChild != nil || isMultipart(child) {
			leaves = collectLeaves(child, leaves)
			continue
		}
		leaves = append(leaves, child)
	}
	return leaves
}

// decodeTransfer removes the Content-Transfer-Encoding of a part read with
// rawParser, leaving the charset alone.
func decodeTransfer(p *enmime.Part) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		return decodeBase64(p.Content)
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(p.Content)))
	default:
		return p.Content, nil
	}
}

// decodeBase64 decodes base64 text broken into lines, with or without padding.
func decodeBase64(data []byte) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, string(data))

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
}

func isMultipart(p *enmime.Part) bool {
	return strings.HasPrefix(strings.ToLower(p.ContentType), "multipart/")
}
