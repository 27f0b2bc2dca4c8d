package emailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendgridApiMail struct {
	client   *sendgrid.Client
	fromName string
	from     string
}

func NewSendgridApiMail(apiKey, fromName, from string) *SendgridApiMail {
	return &SendgridApiMail{client: sendgrid.NewSendClient(apiKey), fromName: fromName, from: from}
}

func (o *SendgridApiMail) Send(ctx context.Context, msg Message) error {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(o.fromName, o.from))
	m.AddContent(mail.NewContent("text/html", msg.HTML))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(msg.ToName, msg.To))
	personalization.Subject = msg.Subject
	m.AddPersonalizations(personalization)

	toAdd := make([]*mail.Attachment, 0, len(msg.Attachments))
	for i := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(msg.Attachments[i].Data))
		mimeType := msg.Attachments[i].MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		att.SetType(mimeType)
		att.SetFilename(msg.Attachments[i].Name)
		att.SetDisposition("attachment")
		toAdd = append(toAdd, att)
	}
	if len(toAdd) > 0 {
		m.AddAttachment(toAdd...)
	}

	resp, err := o.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message with status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
