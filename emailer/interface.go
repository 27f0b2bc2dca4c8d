package emailer

import "context"

type Attachment struct {
	Name     string
	Data     []byte
	MimeType string
}

// Message is a single outgoing HTML mail
type Message struct {
	ToName      string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Emailer interface {
	Send(ctx context.Context, msg Message) error
}

// Disabled drops every message. It is used when no mail transport is configured.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, msg Message) error {
	return ErrDisabled
}
