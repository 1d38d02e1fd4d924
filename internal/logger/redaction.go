package logger

import (
	"io"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// rule names a pattern so tests and callers can tell which one fired.
// repl may keep a captured prefix, so JSON keys survive and lines stay parseable.
type rule struct {
	name string
	re   *regexp.Regexp
	repl string
}

// Redactor masks credentials in log lines before they reach any output.
type Redactor struct {
	rules   []rule
	secrets []string
}

// NewRedactor knows the credential shapes the bot handles: Telegram bot tokens
// (bare or inside file URLs), Groq/OpenAI/Anthropic keys, the weather appid
// query parameter, and bearer headers.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []rule{
			{"anthropic_key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`), redacted},
			{"openai_key", regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), redacted},
			{"groq_key", regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`), redacted},
			{"telegram_token", regexp.MustCompile(`\d{8,10}:[a-zA-Z0-9_-]{30,}`), redacted},
			{"weather_appid", regexp.MustCompile(`(appid=)[a-zA-Z0-9]+`), "${1}" + redacted},
			{"bearer", regexp.MustCompile(`(Bearer\s+)[a-zA-Z0-9._-]+`), "${1}" + redacted},
			{"assignment", regexp.MustCompile(`(?i)((?:password|secret|api_key|token)["\s:=]+)[^\s",}\[]{8,}`), "${1}" + redacted},
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{name: "custom", re: re, repl: redacted})
	return nil
}

// AddSecrets masks exact values, such as keys read from the config file.
// Values shorter than six characters are ignored; masking them would shred ordinary text.
func (r *Redactor) AddSecrets(values ...string) {
	for _, v := range values {
		if len(v) < 6 {
			continue
		}
		r.secrets = append(r.secrets, v)
	}
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	for _, v := range r.secrets {
		s = strings.ReplaceAll(s, v, redacted)
	}
	for _, rl := range r.rules {
		s = rl.re.ReplaceAllString(s, rl.repl)
	}
	return s
}

// Matches reports the names of the rules that fire on s.
func (r *Redactor) Matches(s string) []string {
	var names []string
	for _, v := range r.secrets {
		if strings.Contains(s, v) {
			names = append(names, "secret")
			break
		}
	}
	for _, rl := range r.rules {
		if rl.re.MatchString(s) {
			names = append(names, rl.name)
		}
	}
	return names
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success; the masked line is usually a different length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.writer, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
