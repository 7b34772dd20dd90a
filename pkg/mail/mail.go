package mail

import (
	"context"
	"net/mail"
)

// Attachment is a file carried alongside a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outbound email.
type Message struct {
	To          []mail.Address
	Subject     string
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// HasRecipients reports whether the message has at least one addressee.
func (m Message) HasRecipients() bool {
	for _, to := range m.To {
		if to.Address != "" {
			return true
		}
	}
	return false
}

// Sender delivers messages synchronously. Callers decide whether to detach delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
