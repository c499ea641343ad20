package logger

import (
	"io"
	"regexp"
)

// Redactor redacts sensitive information from log output.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor covering bearer tokens plus any literal
// secrets passed in (the long-lived authorization key, API keys).
func NewRedactor(secrets ...string) *Redactor {
	patterns := []*regexp.Regexp{
		// Bearer tokens
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
		// Basic credentials
		regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/=]+`),
		// OpenAI-style API keys
		regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
		// access_token fields in dumped payloads
		regexp.MustCompile(`"access_token"\s*:\s*"[^"]+"`),
	}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(s)))
	}
	return &Redactor{patterns: patterns}
}

// Redact masks sensitive information in s.
func (r *Redactor) Redact(s string) string {
	result := s
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Wrap wraps an io.Writer so everything written through it is redacted.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	// Report the original length so zerolog does not see short writes.
	return len(p), nil
}
