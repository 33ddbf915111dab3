// Package compose serializes forwarded messages into raw MIME wire form.
package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/shineum/ses-forwarder/internal/email"
)

// lineLength is the maximum encoded line length for base64 bodies (RFC 2045).
const lineLength = 76

// maxHeaderLine is the recommended header line length, CRLF excluded.
const maxHeaderLine = 78

// Raw builds a multipart/mixed message from msg. Parts are written in order,
// each base64 encoded. Text parts are labelled UTF-8.
func Raw(msg *email.Forward) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", formatAddress(msg.From))
	writeHeader(&buf, "To", formatAddress(msg.To))
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	for i, p := range msg.Parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", contentType(p))
		header.Set("Content-Transfer-Encoding", "base64")
		if p.Disposition != "" {
			header.Set("Content-Disposition", p.Disposition)
		}

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create part %d: %w", i, err)
		}
		if _, err := part.Write([]byte(encodeBase64WithLineBreaks(p.Content))); err != nil {
			return nil, fmt.Errorf("failed to write part %d: %w", i, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}

// contentType returns the Content-Type header for p. An original header is
// reused verbatim. Body text without a charset is labelled UTF-8;
// attachments never get a charset added.
func contentType(p email.Part) string {
	if p.ContentTypeHeader != "" {
		return p.ContentTypeHeader
	}
	if p.ContentType == "" {
		return "application/octet-stream"
	}
	if p.Disposition == "" && strings.HasPrefix(p.ContentType, "text/") && !strings.Contains(p.ContentType, "charset") {
		return p.ContentType + "; charset=utf-8"
	}
	return p.ContentType
}

// formatAddress renders addr in RFC 5322 form, encoding a non-ASCII display
// name. A bare address stays bare. Values that do not parse as a single
// address are written as given.
func formatAddress(addr string) string {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return addr
	}
	if parsed.Name == "" {
		return parsed.Address
	}
	return parsed.String()
}

// writeHeader writes "name: value", folding at spaces so that lines stay
// within maxHeaderLine where possible (RFC 5322 section 2.2.3).
func writeHeader(buf *bytes.Buffer, name, value string) {
	line := name + ":"
	for i, word := range strings.Split(value, " ") {
		switch {
		case i == 0:
			line += " " + word
		case len(line)+1+len(word) > maxHeaderLine:
			buf.WriteString(line + "\r\n")
			line = " " + word
		default:
			line += " " + word
		}
	}
	buf.WriteString(line + "\r\n")
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += lineLength {
		end := i + lineLength
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
