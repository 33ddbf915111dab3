package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSend_PrintsEnvelopeAndMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	raw := []byte("From: forwarder@workfort.dev\r\nSubject: Monthly Report\r\n\r\nPlease find the report attached.")
	err := p.Send(context.Background(), "forwarder@workfort.dev", []string{"alice@example.com", "bob@example.com"}, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Envelope-From: forwarder@workfort.dev") {
		t.Error("output missing envelope sender")
	}
	if !strings.Contains(output, "Envelope-To: alice@example.com, bob@example.com") {
		t.Error("output missing envelope recipients")
	}
	if !strings.Contains(output, "Subject: Monthly Report") {
		t.Error("output missing raw message headers")
	}
	if !strings.Contains(output, "Please find the report attached.\n") {
		t.Error("output missing body text followed by newline")
	}
	if !strings.HasPrefix(output, separator) {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, separator) {
		t.Error("output should end with separator line")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	if err := p.Send(context.Background(), "a@example.com", []string{"b@example.com"}, []byte("x")); err == nil {
		t.Error("expected error from failing writer, got nil")
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{2621440, "2.5 MB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
