package model

import "context"

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MailSender delivers outbound email.
type MailSender interface {
	Send(ctx context.Context, msg Message) error
}
