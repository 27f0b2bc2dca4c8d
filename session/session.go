// Package session holds the signed-in state of the site visitor.
//
// A Session is one of Anonymous, User or Admin. Admin can only be built with
// an admin token, so a login claim alone never grants admin access.
package session

import "errors"

var (
	ErrEmptyToken      = errors.New("token is required")
	ErrEmptyAdminToken = errors.New("admin token is required")
)

// Session is the visitor's state
type Session interface {
	View() View
	isSession()
}

// View is the flattened read model handed to the UI
type View struct {
	Username        string `json:"username"`
	Token           string `json:"token"`
	IsAdmin         bool   `json:"isAdmin"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Anonymous visitor
type Anonymous struct{}

func (Anonymous) isSession() {}

func (Anonymous) View() View { return View{} }

// User is signed in with a regular token
type User struct {
	username string
	token    string
}

// NewUser validates a regular session
func NewUser(username, token string) (User, error) {
	if token == "" {
		return User{}, ErrEmptyToken
	}
	return User{username: username, token: token}, nil
}

func (User) isSession() {}

func (u User) View() View {
	return View{Username: u.username, Token: u.token, IsAuthenticated: true}
}

// Admin holds an admin token next to the optional regular token
type Admin struct {
	username   string
	token      string
	adminToken string
}

// NewAdmin validates an admin session
func NewAdmin(username, token, adminToken string) (Admin, error) {
	if adminToken == "" {
		return Admin{}, ErrEmptyAdminToken
	}
	return Admin{username: username, token: token, adminToken: adminToken}, nil
}

func (Admin) isSession() {}

func (a Admin) View() View {
	return View{Username: a.username, Token: a.token, IsAdmin: true, IsAuthenticated: true}
}

// AdminToken of the session
func (a Admin) AdminToken() string { return a.adminToken }
