package forwarder

import (
	"fmt"
	"log/slog"

	"github.com/shineum/ses-forwarder/internal/email"
)

const (
	unknownValue   = "Unknown"
	defaultSubject = "No Subject"
)

// Rebuild assembles the message sent to destination on behalf of sender.
//
// Plain-text bodies are prefixed with HeaderBlock. HTML bodies are copied
// unchanged. Attachments keep their bytes, Content-Type header and
// disposition. Any other part is dropped.
func Rebuild(msg *email.Message, recipient, destination, sender string) *email.Forward {
	fwd := &email.Forward{
		From:    sender,
		To:      destination,
		Subject: fmt.Sprintf("[%s] %s", recipient, subjectOf(msg)),
	}
	block := HeaderBlock(msg, recipient)

	if !msg.Multipart {
		body := email.Part{Content: msg.Body}.Text()
		fwd.Parts = append(fwd.Parts, textPart("text/plain", block+body))
		return fwd
	}

	for _, p := range msg.Parts {
		switch {
		case p.ContentType == "text/plain" && !p.IsAttachment():
			fwd.Parts = append(fwd.Parts, textPart("text/plain", block+p.Text()))
		case p.ContentType == "text/html" && !p.IsAttachment():
			fwd.Parts = append(fwd.Parts, textPart("text/html", p.Text()))
		case p.IsAttachment():
			fwd.Parts = append(fwd.Parts, email.Part{
				ContentType:       p.ContentType,
				ContentTypeHeader: p.ContentTypeHeader,
				Disposition:       p.Disposition,
				Content:           p.Content,
			})
		default:
			slog.Debug("dropping MIME part",
				"content_type", p.ContentType,
				"disposition", p.Disposition,
			)
		}
	}
	return fwd
}

// HeaderBlock summarizes the original message headers as plain text,
// followed by a separator line.
func HeaderBlock(msg *email.Message, recipient string) string {
	return fmt.Sprintf("\nOriginal From: %s\nOriginal To: %s\nOriginal Date: %s\nOriginal Subject: %s\n\n---\n\n",
		orDefault(msg.From, unknownValue),
		recipient,
		orDefault(msg.Date, unknownValue),
		subjectOf(msg),
	)
}

func textPart(mediaType, text string) email.Part {
	return email.Part{ContentType: mediaType, Content: []byte(text)}
}

func subjectOf(msg *email.Message) string {
	return orDefault(msg.Subject, defaultSubject)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
