package forms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allura/allura-web/client"
	"github.com/allura/allura-web/mediastore"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/session"
	"github.com/allura/allura-web/wizard"
)

type fakeAPI struct {
	mu           sync.Mutex
	registered   []model.RegisterRequest
	contacts     []model.Contact
	applications []client.ApplicationForm
	cvs          [][]byte
	resp         model.AuthResponse
	err          error
	block        chan struct{}
}

func (f *fakeAPI) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeAPI) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, req)
	return f.resp, f.err
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	f.wait()
	return f.resp, f.err
}

func (f *fakeAPI) SubmitContact(ctx context.Context, c model.Contact) (model.Contact, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, c)
	return c, f.err
}

func (f *fakeAPI) SubmitApplication(ctx context.Context, form client.ApplicationForm) (model.Application, error) {
	f.wait()
	cv, err := io.ReadAll(form.CV)
	if err != nil {
		return model.Application{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applications = append(f.applications, form)
	f.cvs = append(f.cvs, cv)
	return model.Application{FullName: form.FullName}, f.err
}

func newProvider(t *testing.T, seed map[string]string) (*session.Provider, *session.MemoryStorage) {
	t.Helper()
	storage := session.NewMemoryStorage(seed)
	p, err := session.NewProvider(storage)
	require.NoError(t, err)
	return p, storage
}

func fillAccount(f *SignupForm) {
	f.Set("username", "alice")
	f.Set("email", "alice@example.com")
	f.Set("password", "secret1")
	f.Set("confirmPassword", "secret1")
}

func TestSignupShortUsernameBlocksStep(t *testing.T) {
	p, _ := newProvider(t, nil)
	f := NewSignupForm(&fakeAPI{}, p)
	fillAccount(f)
	f.Set("username", "ab")

	err := f.Next(context.Background())
	assert.ErrorIs(t, err, wizard.ErrBlocked)
	assert.Equal(t, StepAccount, f.Step())
	assert.Equal(t, "Username must be at least 3 characters", f.FieldError("username"))
}

func TestValidateAccount(t *testing.T) {
	valid := SignupValues{Username: "alice", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}

	tests := []struct {
		name   string
		mutate func(*SignupValues)
		field  string
		want   string
	}{
		{"blank username", func(v *SignupValues) { v.Username = "   " }, "username", "Username is required"},
		{"short username", func(v *SignupValues) { v.Username = "ab" }, "username", "Username must be at least 3 characters"},
		{"missing email", func(v *SignupValues) { v.Email = "" }, "email", "Email is required"},
		{"bad email", func(v *SignupValues) { v.Email = "alice@example" }, "email", "Email is invalid"},
		{"missing password", func(v *SignupValues) { v.Password = ""; v.ConfirmPassword = "" }, "password", "Password is required"},
		{"short password", func(v *SignupValues) { v.Password = "12345"; v.ConfirmPassword = "12345" }, "password", "Password must be at least 6 characters"},
		{"missing confirmation", func(v *SignupValues) { v.ConfirmPassword = "" }, "confirmPassword", "Please confirm your password"},
		{"mismatch", func(v *SignupValues) { v.ConfirmPassword = "secret2" }, "confirmPassword", "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)
			errs := ValidateAccount(v)
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}

	assert.Empty(t, ValidateAccount(valid))
	assert.Equal(t, "You must accept the terms and conditions", ValidateTerms(valid)["acceptedTerms"])
}

func TestValidateAccountCountsRawLength(t *testing.T) {
	valid := SignupValues{Username: "alice", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}

	tests := []struct {
		name     string
		username string
		password string
		field    string
		want     string
	}{
		{"trailing space completes password", "alice", "abcde ", "password", ""},
		{"leading space completes password", "alice", " 12345", "password", ""},
		{"blank password has content", "alice", "      ", "password", ""},
		{"five characters", "alice", "12345", "password", "Password must be at least 6 characters"},
		{"trailing space completes username", "ab ", "secret1", "username", ""},
		{"blank username", "   ", "secret1", "username", "Username is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			v.Username = tt.username
			v.Password = tt.password
			v.ConfirmPassword = tt.password
			errs := ValidateAccount(v)
			assert.Equal(t, tt.want, errs[tt.field])
			assert.NotContains(t, errs, "confirmPassword")
		})
	}
}

func TestSetClearsOnlyThatField(t *testing.T) {
	p, _ := newProvider(t, nil)
	f := NewSignupForm(&fakeAPI{}, p)
	require.Error(t, f.Next(context.Background()))
	require.Len(t, f.Errors(), 4)

	f.Set("username", "x")
	errs := f.Errors()
	assert.NotContains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestSignupFlow(t *testing.T) {
	p, storage := newProvider(t, map[string]string{session.KeyAdminToken: "stale"})
	api := &fakeAPI{resp: model.AuthResponse{Token: "tok", Username: "alice"}}
	f := NewSignupForm(api, p)
	ctx := context.Background()

	fillAccount(f)
	require.NoError(t, f.Next(ctx))
	assert.Equal(t, StepTerms, f.Step())

	assert.ErrorIs(t, f.Next(ctx), wizard.ErrBlocked)
	f.AcceptTerms(true)
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.SelectPlan(ctx, "Professional"))
	assert.Equal(t, StepReview, f.Step())

	require.NoError(t, f.Next(ctx))
	assert.True(t, f.Done())
	assert.Equal(t, StepReview, f.Step())
	assert.ErrorIs(t, f.Next(ctx), wizard.ErrCompleted)
	assert.True(t, f.Done())
	require.Len(t, api.registered, 1)
	assert.Equal(t, model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1", Plan: "pro"}, api.registered[0])

	view := p.Snapshot()
	assert.True(t, view.IsAuthenticated)
	assert.False(t, view.IsAdmin)
	_, ok, _ := storage.Get(session.KeyAdminToken)
	assert.False(t, ok)
	assert.Equal(t, &Notification{Type: NotificationSuccess, Message: "Account created successfully! Redirecting to home..."}, f.Notification())
}

func TestSignupServerError(t *testing.T) {
	p, _ := newProvider(t, nil)
	api := &fakeAPI{err: &client.APIError{StatusCode: http.StatusBadRequest, Message: "User already exists"}}
	f := NewSignupForm(api, p)
	ctx := context.Background()
	fillAccount(f)
	f.AcceptTerms(true)
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.SkipPlan(ctx))

	require.Error(t, f.Next(ctx))
	assert.False(t, f.Done())
	assert.False(t, f.Loading())
	assert.Equal(t, "User already exists", f.Notification().Message)
	assert.False(t, p.IsAuthenticated())
	assert.Equal(t, model.DefaultPlan, api.registered[0].Plan)
}

func TestPlanID(t *testing.T) {
	assert.Equal(t, "basic", PlanID("Basic"))
	assert.Equal(t, "pro", PlanID("Professional"))
	assert.Equal(t, "ultimate", PlanID("Ultimate"))
	assert.Equal(t, "free", PlanID("Enterprise"))
	assert.Equal(t, "free", PlanID(""))
}

func TestSigninAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc","username":"bob","isAdmin":false}`))
	}))
	defer srv.Close()

	p, _ := newProvider(t, nil)
	f := NewSigninForm(client.New(srv.URL), p)
	f.Set("email", "bob@example.com")
	f.Set("password", "pw")
	require.NoError(t, f.Submit(context.Background()))

	view := p.Snapshot()
	assert.Equal(t, session.View{Username: "bob", Token: "abc", IsAuthenticated: true}, view)
	assert.Equal(t, "Welcome back! Redirecting to home...", f.Notification().Message)
}

func TestSigninValidationAndFailures(t *testing.T) {
	p, _ := newProvider(t, nil)
	api := &fakeAPI{}
	f := NewSigninForm(api, p)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrInvalid)
	assert.Equal(t, FieldErrors{"email": "Email is required", "password": "Password is required"}, f.Errors())

	f.Set("email", "bob@example.com")
	f.Set("password", "pw")

	api.err = &client.APIError{StatusCode: http.StatusUnauthorized}
	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, "Invalid credentials. Please try again.", f.Notification().Message)

	api.err = client.ErrTransport
	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, NetworkErrorMessage, f.Notification().Message)

	api.err = context.Canceled
	require.Error(t, f.Submit(context.Background()))
	assert.Nil(t, f.Notification(), "a cancelled submission shows nothing")
	assert.False(t, p.IsAuthenticated())
}

func TestSubmitInFlight(t *testing.T) {
	p, _ := newProvider(t, nil)
	api := &fakeAPI{block: make(chan struct{}), resp: model.AuthResponse{Token: "t", Username: "u"}}
	f := NewSigninForm(api, p)
	f.Set("email", "u@example.com")
	f.Set("password", "pw")

	done := make(chan error)
	go func() { done <- f.Submit(context.Background()) }()
	require.Eventually(t, f.Loading, timeout, tick)

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInFlight)
	close(api.block)
	require.NoError(t, <-done)
	assert.False(t, f.Loading())
}

func fillContact(f *ContactForm) {
	f.Set("firstName", "Ada")
	f.Set("lastName", "Lovelace")
	f.ToggleProjectType("Web App")
	f.Set("projectDescription", "A portfolio site")
	f.Set("phoneNumber", "+20 100 123 4567")
	f.Set("potentialBudget", model.BudgetRanges[0])
}

func TestContactForm(t *testing.T) {
	api := &fakeAPI{}
	f := NewContactForm(api)
	assert.False(t, f.CanSubmit())

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInvalid)
	assert.Equal(t, FieldErrors{
		"firstName":          "First name is required",
		"lastName":           "Last name is required",
		"projectTypes":       "Please select at least one project type",
		"projectDescription": "Project description is required",
		"phoneNumber":        "Phone number is required",
		"potentialBudget":    "Please select a budget range",
	}, f.Errors())
	assert.Empty(t, api.contacts)

	fillContact(f)
	assert.True(t, f.CanSubmit())
	assert.Empty(t, f.Errors())

	f.ToggleProjectType("Web App")
	assert.False(t, f.CanSubmit())
	f.ToggleProjectType("Time Machine")
	assert.Empty(t, f.Values().ProjectTypes)
	f.ToggleProjectType("Mobile App")

	require.NoError(t, f.Submit(context.Background()))
	require.Len(t, api.contacts, 1)
	assert.Equal(t, []string{"Mobile App"}, api.contacts[0].ProjectTypes)
	assert.True(t, strings.HasPrefix(f.Notification().Message, "Thank you!"))
	assert.Equal(t, ContactValues{}, f.Values())
}

func TestContactFailureKeepsValues(t *testing.T) {
	api := &fakeAPI{err: errors.New("dial tcp: connection refused")}
	f := NewContactForm(api)
	fillContact(f)
	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, NetworkErrorMessage, f.Notification().Message)
	assert.Equal(t, "Ada", f.Values().FirstName)

	f.DismissNotification()
	assert.Nil(t, f.Notification())
}

func TestJoinUsWithoutCV(t *testing.T) {
	api := &fakeAPI{}
	f := NewJoinUsForm(api)
	f.Set("fullName", "Grace Hopper")
	f.Set("role", "Backend Developer")
	f.Set("description", "Compilers")

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInvalid)
	assert.Equal(t, FieldErrors{"cv": "CV file is required"}, f.Errors())
	assert.Empty(t, api.applications)
}

func TestJoinUsCVRules(t *testing.T) {
	base := JoinUsValues{FullName: "Grace", Role: "Other", Description: "x"}

	v := base
	v.CV = &CVFile{Name: "cv.txt", Size: 10}
	assert.Equal(t, "CV must be a PDF, DOC or DOCX file", ValidateJoinUs(v)["cv"])

	v.CV = &CVFile{Name: "cv.PDF", Size: 11 << 20}
	assert.Equal(t, "CV file must be 10MB or smaller", ValidateJoinUs(v)["cv"])

	v.CV = &CVFile{Name: "cv.docx", Size: 1024}
	assert.Empty(t, ValidateJoinUs(v))

	v.Role = "Astronaut"
	assert.Equal(t, "Please select a role", ValidateJoinUs(v)["role"])
}

func TestJoinUsSubmit(t *testing.T) {
	api := &fakeAPI{}
	f := NewJoinUsForm(api)
	f.Set("fullName", " Grace Hopper ")
	f.Set("role", "Backend Developer")
	f.Set("description", "Compilers")
	require.NoError(t, f.AttachCV("cv.pdf", strings.NewReader("%PDF")))

	require.NoError(t, f.Submit(context.Background()))
	require.Len(t, api.applications, 1)
	assert.Equal(t, "Grace Hopper", api.applications[0].FullName)
	assert.Equal(t, "cv.pdf", api.applications[0].CVName)
	assert.Equal(t, NotificationSuccess, f.Notification().Type)
	assert.Nil(t, f.Values().CV)
}

func TestJoinUsRetrySendsWholeCV(t *testing.T) {
	api := &fakeAPI{err: errors.New("network down")}
	f := NewJoinUsForm(api)
	f.Set("fullName", "Grace Hopper")
	f.Set("role", "QA Engineer")
	f.Set("description", "Testing")
	require.NoError(t, f.AttachCV("cv.pdf", strings.NewReader("%PDF-1.7\n")))

	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, NetworkErrorMessage, f.Notification().Message)
	require.NotNil(t, f.Values().CV)

	api.err = nil
	require.NoError(t, f.Submit(context.Background()))
	require.Len(t, api.cvs, 2)
	assert.Equal(t, []byte("%PDF-1.7\n"), api.cvs[0])
	assert.Equal(t, api.cvs[0], api.cvs[1])
}

func TestJoinUsAttachOversizedCV(t *testing.T) {
	f := NewJoinUsForm(&fakeAPI{})
	f.Set("fullName", "Grace Hopper")
	f.Set("role", "Other")
	f.Set("description", "x")
	big := strings.NewReader(strings.Repeat("a", int(mediastore.MaxDocumentSize)+10))
	require.NoError(t, f.AttachCV("cv.pdf", big))
	assert.Equal(t, mediastore.MaxDocumentSize+1, f.Values().CV.Size)

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInvalid)
	assert.Equal(t, "CV file must be 10MB or smaller", f.FieldError("cv"))

	f.RemoveCV()
	assert.Nil(t, f.Values().CV)
}
