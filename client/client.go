// Package client talks to the Allura REST API on behalf of the site forms.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sendgrid/rest"

	"github.com/allura/allura-web/model"
)

// ErrTransport wraps failures that happened before a response was received
var ErrTransport = errors.New("network error")

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status of an *APIError, or 0
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client for the REST API
type Client struct {
	baseURL string
	rest    *rest.Client
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest.HTTPClient = hc
	}
}

// New creates a client for the API served at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: 2 * time.Minute}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ApplicationForm is the multipart payload of a join-us submission
type ApplicationForm struct {
	FullName    string
	Role        string
	Description string
	CVName      string
	CV          io.Reader
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.doJSON(ctx, rest.Post, "/user/register", "", req, &resp)
	return resp, err
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := c.doJSON(ctx, rest.Post, "/user/login", "", model.LoginRequest{Email: email, Password: password}, &resp)
	return resp, err
}

// SubmitContact sends a contact request
func (c *Client) SubmitContact(ctx context.Context, contact model.Contact) (model.Contact, error) {
	var resp struct {
		Contact model.Contact `json:"contact"`
	}
	err := c.doJSON(ctx, rest.Post, "/contact", "", contact, &resp)
	return resp.Contact, err
}

// SubmitApplication sends a join-us application with its CV
func (c *Client) SubmitApplication(ctx context.Context, form ApplicationForm) (model.Application, error) {
	body, contentType, err := multipartBody(map[string]string{
		"fullName":    form.FullName,
		"role":        form.Role,
		"description": form.Description,
	}, "cv", form.CVName, form.CV)
	if err != nil {
		return model.Application{}, err
	}

	var resp struct {
		Application model.Application `json:"application"`
	}
	err = c.do(ctx, rest.Post, "/joinus", "", contentType, body, &resp)
	return resp.Application, err
}

// UploadVideo uploads a project video. Requires an admin token.
func (c *Client) UploadVideo(ctx context.Context, token, name string, video io.Reader) (model.VideoUpload, error) {
	body, contentType, err := multipartBody(nil, "video", name, video)
	if err != nil {
		return model.VideoUpload{}, err
	}
	var resp model.VideoUpload
	err = c.do(ctx, rest.Post, "/upload/video", token, contentType, body, &resp)
	return resp, err
}

// ListProjects returns all projects, newest first. An empty catalogue is not an error.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := c.doJSON(ctx, rest.Get, "/projects", "", nil, &projects)
	if StatusOf(err) == http.StatusNotFound {
		return []model.Project{}, nil
	}
	return projects, err
}

// CreateProject adds a project. Requires an admin token.
func (c *Client) CreateProject(ctx context.Context, token string, req model.ProjectRequest) (model.Project, error) {
	var project model.Project
	err := c.doJSON(ctx, rest.Post, "/projects", token, req, &project)
	return project, err
}

// ListApplications returns the join-us applications. Requires an admin token.
func (c *Client) ListApplications(ctx context.Context, token string) ([]model.Application, error) {
	var resp struct {
		Applications []model.Application `json:"applications"`
	}
	err := c.doJSON(ctx, rest.Get, "/joinus", token, nil, &resp)
	return resp.Applications, err
}

// UpdateApplicationStatus changes the review status of an application. Requires an admin token.
func (c *Client) UpdateApplicationStatus(ctx context.Context, token, id string, status model.ApplicationStatus) (model.Application, error) {
	var resp struct {
		Application model.Application `json:"application"`
	}
	path := "/joinus/" + url.PathEscape(id) + "/status"
	err := c.doJSON(ctx, rest.Put, path, token, model.StatusUpdate{Status: status}, &resp)
	return resp.Application, err
}

func (c *Client) doJSON(ctx context.Context, method rest.Method, path, token string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("cannot encode request: %w", err)
		}
	}
	return c.do(ctx, method, path, token, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method rest.Method, path, token, contentType string, body []byte, out interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
		Body:    body,
	}
	if body != nil {
		req.Headers["Content-Type"] = contentType
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.Body == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the message of an error body. Bodies are either
// {"message": "..."} objects or bare JSON strings.
func errorMessage(body string) string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal([]byte(body), &s); err == nil {
		return s
	}
	return ""
}

func multipartBody(fields map[string]string, fileField, fileName string, file io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, "", fmt.Errorf("cannot read %s: %w", fileName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
