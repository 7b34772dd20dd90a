package mail

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the structured log instead of delivering them. It keeps a copy of
// every message so tests can assert on what would have been sent.
type LogSender struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender constructs a sender for environments without a mail provider.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail_log_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, to.String())
	}

	s.logger.Info().
		Str("to", strings.Join(recipients, ", ")).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("email captured")

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a snapshot of captured messages.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
