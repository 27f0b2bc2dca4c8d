package forms

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/session"
)

// SigninAPI exchanges credentials for a token
type SigninAPI interface {
	Login(ctx context.Context, email, password string) (model.AuthResponse, error)
}

// SigninValues are the fields of the signin form
type SigninValues struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateSignin checks the signin fields. There is no length floor on the
// password, the server decides.
func ValidateSignin(v SigninValues) FieldErrors {
	return toFieldErrors(validation.ValidateStruct(&v,
		validation.Field(&v.Email, emailRules("Email is required", "Email is invalid")...),
		validation.Field(&v.Password, filled("Password is required")),
	))
}

// SigninForm signs a visitor in
type SigninForm struct {
	state
	api      SigninAPI
	sessions *session.Provider
	values   SigninValues
}

func NewSigninForm(api SigninAPI, sessions *session.Provider) *SigninForm {
	return &SigninForm{state: state{errs: FieldErrors{}}, api: api, sessions: sessions}
}

// Set updates one field and clears only that field's error
func (f *SigninForm) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case "email":
		f.values.Email = value
	case "password":
		f.values.Password = value
	default:
		return
	}
	f.clearLocked(field)
}

// Submit validates and signs in. The admin claim of the response is passed
// on, the session still needs an admin token to become an admin session.
func (f *SigninForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return ErrInFlight
	}
	if errs := ValidateSignin(f.values); len(errs) > 0 {
		f.errs = errs
		f.mu.Unlock()
		return ErrInvalid
	}
	f.errs = FieldErrors{}
	_ = f.beginLocked()
	email, password := strings.TrimSpace(f.values.Email), f.values.Password
	f.mu.Unlock()

	resp, err := f.api.Login(ctx, email, password)
	if err == nil {
		err = f.sessions.Login(resp.Username, resp.Token, resp.IsAdmin)
	}
	f.finish(outcome(err,
		"Welcome back! Redirecting to home...",
		"Invalid credentials. Please try again.",
	))
	return err
}
