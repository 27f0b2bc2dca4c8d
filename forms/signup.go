package forms

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/session"
	"github.com/allura/allura-web/wizard"
)

// Signup wizard steps
const (
	StepAccount = 1
	StepTerms   = 2
	StepPlan    = 3
	StepReview  = 4
)

var signupSteps = []wizard.Step{
	{Name: "Account"},
	{Name: "Terms"},
	{Name: "Plan"},
	{Name: "Review"},
}

// plans maps the names shown on the pricing cards to plan ids
var plans = map[string]string{
	"Basic":        "basic",
	"Professional": "pro",
	"Ultimate":     "ultimate",
}

// PlanID returns the plan id for a pricing card name. Unknown names get the free plan.
func PlanID(name string) string {
	if id, ok := plans[strings.TrimSpace(name)]; ok {
		return id
	}
	return model.DefaultPlan
}

// SignupAPI creates accounts
type SignupAPI interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error)
}

// SignupValues are the fields of the signup wizard
type SignupValues struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	AcceptedTerms   bool   `json:"acceptedTerms"`
	Plan            string `json:"plan"`
}

// ValidateAccount checks the first signup step
func ValidateAccount(v SignupValues) FieldErrors {
	return toFieldErrors(validation.ValidateStruct(&v,
		validation.Field(&v.Username,
			present("Username is required"),
			minLength(3, "Username must be at least 3 characters"),
		),
		validation.Field(&v.Email, emailRules("Email is required", "Email is invalid")...),
		validation.Field(&v.Password,
			filled("Password is required"),
			minLength(6, "Password must be at least 6 characters"),
		),
		validation.Field(&v.ConfirmPassword,
			filled("Please confirm your password"),
			equals(v.Password, "Passwords do not match"),
		),
	))
}

// ValidateTerms checks the terms step
func ValidateTerms(v SignupValues) FieldErrors {
	return toFieldErrors(validation.ValidateStruct(&v,
		validation.Field(&v.AcceptedTerms, present("You must accept the terms and conditions")),
	))
}

// SignupForm drives the four step signup wizard
type SignupForm struct {
	state
	api      SignupAPI
	sessions *session.Provider
	wizard   *wizard.Engine
	values   SignupValues
}

// NewSignupForm creates the wizard. On completion the account is registered
// and the visitor is signed in as a regular user.
func NewSignupForm(api SignupAPI, sessions *session.Provider) *SignupForm {
	f := &SignupForm{
		state:    state{errs: FieldErrors{}},
		api:      api,
		sessions: sessions,
		values:   SignupValues{Plan: model.DefaultPlan},
	}
	// signupSteps is never empty
	f.wizard, _ = wizard.New(signupSteps,
		wizard.WithGate(f.canLeave),
		wizard.WithOnComplete(f.submit),
	)
	return f
}

// canLeave validates the step being left and records its errors
func (f *SignupForm) canLeave(step int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs FieldErrors
	switch step {
	case StepAccount:
		errs = ValidateAccount(f.values)
	case StepTerms:
		errs = ValidateTerms(f.values)
	default:
		errs = FieldErrors{}
	}
	f.errs = errs
	return len(errs) == 0
}

func (f *SignupForm) submit(ctx context.Context) error {
	f.mu.Lock()
	if err := f.beginLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	req := model.RegisterRequest{
		Username: strings.TrimSpace(f.values.Username),
		Email:    strings.TrimSpace(f.values.Email),
		Password: f.values.Password,
		Plan:     f.values.Plan,
	}
	f.mu.Unlock()

	resp, err := f.api.Register(ctx, req)
	if err == nil {
		// new accounts are never admins, Login also drops a stale admin token
		err = f.sessions.Login(resp.Username, resp.Token, false)
	}
	f.finish(outcome(err,
		"Account created successfully! Redirecting to home...",
		"Failed to create account. Please try again.",
	))
	return err
}

// Set updates one field and clears only that field's error
func (f *SignupForm) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case "username":
		f.values.Username = value
	case "email":
		f.values.Email = value
	case "password":
		f.values.Password = value
	case "confirmPassword":
		f.values.ConfirmPassword = value
	default:
		return
	}
	f.clearLocked(field)
}

// AcceptTerms sets the terms checkbox
func (f *SignupForm) AcceptTerms(accepted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.AcceptedTerms = accepted
	f.clearLocked("acceptedTerms")
}

// SelectPlan picks a pricing card by name and moves on to the review step
func (f *SignupForm) SelectPlan(ctx context.Context, name string) error {
	f.mu.Lock()
	f.values.Plan = PlanID(name)
	f.mu.Unlock()
	return f.Next(ctx)
}

// SkipPlan keeps the free plan and moves on to the review step
func (f *SignupForm) SkipPlan(ctx context.Context) error {
	return f.SelectPlan(ctx, "")
}

// Values returns a copy of the entered values
func (f *SignupForm) Values() SignupValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Next validates the current step and advances, or submits on the review step
func (f *SignupForm) Next(ctx context.Context) error {
	return f.wizard.Next(ctx)
}

// Back returns to the previous step
func (f *SignupForm) Back() {
	f.wizard.Back()
}

// Step is the current wizard step
func (f *SignupForm) Step() int {
	return f.wizard.CurrentStep()
}

// Progress of the wizard between 0 and 1
func (f *SignupForm) Progress() float64 {
	return f.wizard.Progress()
}

// Done reports whether the account was created
func (f *SignupForm) Done() bool {
	return f.wizard.IsComplete()
}
