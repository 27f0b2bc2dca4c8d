package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/client"
	"github.com/allura/allura-web/mediastore"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/util"
)

// JoinUsAPI sends join-us applications
type JoinUsAPI interface {
	SubmitApplication(ctx context.Context, form client.ApplicationForm) (model.Application, error)
}

// CVFile is the attached CV held in memory
type CVFile struct {
	Name string
	Size int64
	Data []byte
}

// JoinUsValues are the fields of the join-us form
type JoinUsValues struct {
	FullName    string  `json:"fullName"`
	Role        string  `json:"role"`
	Description string  `json:"description"`
	CV          *CVFile `json:"cv"`
}

func cvRule(value interface{}) error {
	cv, _ := value.(*CVFile)
	if cv == nil {
		return nil
	}
	if !util.ContainsString(mediastore.DocumentExtensions(), util.FileExt(cv.Name)) {
		return errors.New("CV must be a PDF, DOC or DOCX file")
	}
	if cv.Size > mediastore.MaxDocumentSize {
		return errors.New("CV file must be 10MB or smaller")
	}
	return nil
}

// ValidateJoinUs checks the join-us fields
func ValidateJoinUs(v JoinUsValues) FieldErrors {
	return toFieldErrors(validation.ValidateStruct(&v,
		validation.Field(&v.FullName, present("Full name is required")),
		validation.Field(&v.Role,
			present("Please select a role"),
			oneOf(model.Roles, "Please select a role"),
		),
		validation.Field(&v.Description, present("Description is required")),
		validation.Field(&v.CV, present("CV file is required"), validation.By(cvRule)),
	))
}

// JoinUsForm sends a job application with a CV
type JoinUsForm struct {
	state
	api    JoinUsAPI
	values JoinUsValues
}

func NewJoinUsForm(api JoinUsAPI) *JoinUsForm {
	return &JoinUsForm{state: state{errs: FieldErrors{}}, api: api}
}

// Set updates one text field and clears only that field's error
func (f *JoinUsForm) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case "fullName":
		f.values.FullName = value
	case "role":
		f.values.Role = value
	case "description":
		f.values.Description = value
	default:
		return
	}
	f.clearLocked(field)
}

// AttachCV reads the CV into memory so that a failed submission can be sent
// again. Reading stops just past the size limit, which validation then reports.
func (f *JoinUsForm) AttachCV(name string, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, mediastore.MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("cannot read cv: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.CV = &CVFile{Name: name, Size: int64(len(data)), Data: data}
	f.clearLocked("cv")
	return nil
}

// RemoveCV drops the attached CV
func (f *JoinUsForm) RemoveCV() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.CV = nil
}

// Values returns a copy of the entered values
func (f *JoinUsForm) Values() JoinUsValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values
	if v.CV != nil {
		cv := *v.CV
		v.CV = &cv
	}
	return v
}

// Submit validates and uploads the application. Nothing is sent while a
// field is invalid. The form is cleared on success.
func (f *JoinUsForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return ErrInFlight
	}
	if errs := ValidateJoinUs(f.values); len(errs) > 0 {
		f.errs = errs
		f.mu.Unlock()
		return ErrInvalid
	}
	f.errs = FieldErrors{}
	_ = f.beginLocked()
	form := client.ApplicationForm{
		FullName:    strings.TrimSpace(f.values.FullName),
		Role:        f.values.Role,
		Description: f.values.Description,
		CVName:      f.values.CV.Name,
		CV:          bytes.NewReader(f.values.CV.Data),
	}
	f.mu.Unlock()

	_, err := f.api.SubmitApplication(ctx, form)
	if err == nil {
		f.mu.Lock()
		f.values = JoinUsValues{}
		f.mu.Unlock()
	}
	f.finish(outcome(err,
		"Thank you! Your application has been submitted successfully. We'll review it and get back to you soon!",
		"Something went wrong. Please try again or contact us directly.",
	))
	return err
}
