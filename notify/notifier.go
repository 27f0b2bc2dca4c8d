// Package notify delivers the secondary notifications of form submissions.
// Delivery failures are logged and never reported to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"

	"github.com/allura/allura-web/emailer"
	"github.com/allura/allura-web/model"
)

// ChatSender posts a short text message to a team chat
type ChatSender interface {
	SendText(ctx context.Context, text string) error
}

// Notifier fans submissions out to mail and chat
type Notifier struct {
	mailer   emailer.Emailer
	chat     ChatSender
	receiver string
	policy   RetryPolicy
	wg       sync.WaitGroup
}

// Option customises a Notifier
type Option func(*Notifier)

// WithChat adds a chat channel next to mail
func WithChat(chat ChatSender) Option {
	return func(n *Notifier) {
		n.chat = chat
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(n *Notifier) {
		n.policy = policy
	}
}

// New creates a notifier that mails receiver through mailer
func New(mailer emailer.Emailer, receiver string, opts ...Option) *Notifier {
	if mailer == nil {
		mailer = emailer.Disabled{}
	}
	n := &Notifier{mailer: mailer, receiver: receiver, policy: DefaultRetryPolicy}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ContactSubmitted announces a new contact request
func (n *Notifier) ContactSubmitted(ctx context.Context, c model.Contact) {
	body, err := ContactHTML(c)
	if err != nil {
		log.Error("Cannot render contact notification: ", err)
		return
	}
	n.deliver(ctx, "contact "+c.ID, emailer.Message{
		To:      n.receiver,
		Subject: fmt.Sprintf("New Contact Form Submission: %s", c.FullName()),
		HTML:    body,
	}, fmt.Sprintf("New contact request from %s (%s)\nBudget: %s\nTypes: %s",
		c.FullName(), c.PhoneNumber, c.PotentialBudget, strings.Join(c.ProjectTypes, ", ")))
}

// ApplicationSubmitted announces a new join-us application
func (n *Notifier) ApplicationSubmitted(ctx context.Context, a model.Application) {
	body, err := ApplicationHTML(a)
	if err != nil {
		log.Error("Cannot render application notification: ", err)
		return
	}
	n.deliver(ctx, "application "+a.ID, emailer.Message{
		To:      n.receiver,
		Subject: fmt.Sprintf("New Join Us Application: %s", a.FullName),
		HTML:    body,
	}, fmt.Sprintf("New application from %s for %s\nCV: %s", a.FullName, a.Role, a.CVURL))
}

// Dispatch runs fn in the background so that slow relays never hold up a
// request. Wait blocks until all dispatched notifications finished.
func (n *Notifier) Dispatch(fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn()
	}()
}

// Wait for dispatched notifications
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, what string, msg emailer.Message, chatText string) {
	if n.receiver != "" {
		err := Retry(ctx, n.policy, func(ctx context.Context) error {
			return n.mailer.Send(ctx, msg)
		})
		if err != nil {
			log.Warnf("Notification mail for %s was not delivered: %v", what, err)
		} else {
			log.Infof("Notification mail for %s sent to %s", what, n.receiver)
		}
	}

	if n.chat != nil {
		if err := n.chat.SendText(ctx, chatText); err != nil {
			log.Warnf("Chat notification for %s was not delivered: %v", what, err)
		}
	}
}
