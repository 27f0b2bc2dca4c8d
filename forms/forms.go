// Package forms implements the site's forms: field validation, submission
// state and the notification shown after a submission.
package forms

import (
	"context"
	"errors"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/client"
	"github.com/allura/allura-web/wizard"
)

// NetworkErrorMessage is shown when the API could not be reached
const NetworkErrorMessage = "Network error. Please check your connection and try again."

var (
	// ErrInvalid is returned when a submission is blocked by field errors
	ErrInvalid = errors.New("form has validation errors")
	// ErrInFlight is returned when a submission is already running
	ErrInFlight = wizard.ErrInFlight
)

// FieldErrors maps a field name to its message
type FieldErrors map[string]string

// NotificationType tells success from failure
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is the outcome of a submission
type Notification struct {
	Type    NotificationType
	Message string
}

func toFieldErrors(err error) FieldErrors {
	if err == nil {
		return FieldErrors{}
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		out := make(FieldErrors, len(verrs))
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	return FieldErrors{"form": err.Error()}
}

// failure builds the notification for a failed submission. The server's
// message wins over fallback.
func failure(err error, fallback string) *Notification {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return &Notification{Type: NotificationError, Message: apiErr.Message}
	case errors.As(err, &apiErr):
		return &Notification{Type: NotificationError, Message: fallback}
	default:
		return &Notification{Type: NotificationError, Message: NetworkErrorMessage}
	}
}

// state is shared by all forms. mu also guards the embedding form's values.
type state struct {
	mu           sync.Mutex
	errs         FieldErrors
	loading      bool
	notification *Notification
}

// Errors returns a copy of the current field errors
func (s *state) Errors() FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(FieldErrors, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

// FieldError returns the message for field, or ""
func (s *state) FieldError(field string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[field]
}

// Loading reports whether a submission is running
func (s *state) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Notification returns the outcome of the last submission, or nil
func (s *state) Notification() *Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notification == nil {
		return nil
	}
	n := *s.notification
	return &n
}

// DismissNotification hides the last notification
func (s *state) DismissNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notification = nil
}

// clearLocked removes the error of one field. Caller holds mu.
func (s *state) clearLocked(field string) {
	delete(s.errs, field)
}

// beginLocked marks a submission as running. Caller holds mu.
func (s *state) beginLocked() error {
	if s.loading {
		return ErrInFlight
	}
	s.loading = true
	s.notification = nil
	return nil
}

// finish clears the loading flag and records the outcome
func (s *state) finish(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if n != nil {
		s.notification = n
	}
}

// outcome maps a submission error to its notification. A cancelled
// submission gets none.
func outcome(err error, success, fallback string) *Notification {
	switch {
	case err == nil:
		return &Notification{Type: NotificationSuccess, Message: success}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		return failure(err, fallback)
	}
}
