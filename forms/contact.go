package forms

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/model"
)

// ContactAPI sends contact requests
type ContactAPI interface {
	SubmitContact(ctx context.Context, contact model.Contact) (model.Contact, error)
}

// ContactValues are the fields of the contact form
type ContactValues struct {
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	ProjectTypes       []string `json:"projectTypes"`
	ProjectDescription string   `json:"projectDescription"`
	PhoneNumber        string   `json:"phoneNumber"`
	PotentialBudget    string   `json:"potentialBudget"`
}

// ValidateContact checks the contact fields
func ValidateContact(v ContactValues) FieldErrors {
	return toFieldErrors(validation.ValidateStruct(&v,
		validation.Field(&v.FirstName, present("First name is required")),
		validation.Field(&v.LastName, present("Last name is required")),
		validation.Field(&v.ProjectTypes,
			present("Please select at least one project type"),
			eachOneOf(model.ProjectTypes, "Unknown project type"),
		),
		validation.Field(&v.ProjectDescription, present("Project description is required")),
		validation.Field(&v.PhoneNumber, present("Phone number is required")),
		validation.Field(&v.PotentialBudget,
			present("Please select a budget range"),
			oneOf(model.BudgetRanges, "Please select a budget range"),
		),
	))
}

// ContactForm sends a project request
type ContactForm struct {
	state
	api    ContactAPI
	values ContactValues
}

func NewContactForm(api ContactAPI) *ContactForm {
	return &ContactForm{state: state{errs: FieldErrors{}}, api: api}
}

// Set updates one text field and clears only that field's error
func (f *ContactForm) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case "firstName":
		f.values.FirstName = value
	case "lastName":
		f.values.LastName = value
	case "projectDescription":
		f.values.ProjectDescription = value
	case "phoneNumber":
		f.values.PhoneNumber = value
	case "potentialBudget":
		f.values.PotentialBudget = value
	default:
		return
	}
	f.clearLocked(field)
}

// ToggleProjectType selects or deselects one of model.ProjectTypes
func (f *ContactForm) ToggleProjectType(projectType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.values.ProjectTypes {
		if t == projectType {
			f.values.ProjectTypes = append(f.values.ProjectTypes[:i:i], f.values.ProjectTypes[i+1:]...)
			return
		}
	}
	for _, t := range model.ProjectTypes {
		if t == projectType {
			f.values.ProjectTypes = append(f.values.ProjectTypes, projectType)
			f.clearLocked("projectTypes")
			return
		}
	}
}

// Values returns a copy of the entered values
func (f *ContactForm) Values() ContactValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values
	v.ProjectTypes = append([]string(nil), f.values.ProjectTypes...)
	return v
}

// CanSubmit drives the submit control. It needs a project type and no running submission.
func (f *ContactForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.values.ProjectTypes) > 0 && !f.loading
}

// Submit validates and sends the request. The form is cleared on success.
func (f *ContactForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return ErrInFlight
	}
	if errs := ValidateContact(f.values); len(errs) > 0 {
		f.errs = errs
		f.mu.Unlock()
		return ErrInvalid
	}
	f.errs = FieldErrors{}
	_ = f.beginLocked()
	contact := model.Contact{
		FirstName:          strings.TrimSpace(f.values.FirstName),
		LastName:           strings.TrimSpace(f.values.LastName),
		ProjectTypes:       append([]string(nil), f.values.ProjectTypes...),
		ProjectDescription: f.values.ProjectDescription,
		PhoneNumber:        strings.TrimSpace(f.values.PhoneNumber),
		PotentialBudget:    f.values.PotentialBudget,
	}
	f.mu.Unlock()

	_, err := f.api.SubmitContact(ctx, contact)
	if err == nil {
		f.mu.Lock()
		f.values = ContactValues{}
		f.mu.Unlock()
	}
	f.finish(outcome(err,
		"Thank you! Your project request has been submitted successfully. We'll contact you soon!",
		"Something went wrong. Please try again or contact us directly.",
	))
	return err
}
