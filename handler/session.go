package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/xid"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/util"
)

const (
	sessionName       = "session"
	sessionTokenField = "session_token"
)

// ValidSession redirects to the dashboard login page unless an admin session is present
func ValidSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !isValidSession(c) {
			if c.Request().Method == http.MethodGet {
				nextURL := url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/admin/login?next=%s", util.BasePath, nextURL))
			}
			return c.JSON(http.StatusUnauthorized, jsonHTTPResponse{false, "Session expired. Please log in again"})
		}
		return next(c)
	}
}

func isValidSession(c echo.Context) bool {
	if util.DisableLogin {
		return true
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	cookie, err := c.Cookie(sessionTokenField)
	if err != nil || cookie.Value == "" {
		return false
	}
	token, ok := sess.Values[sessionTokenField].(string)
	return ok && token == cookie.Value
}

// currentUser to get username of logged in user
func currentUser(c echo.Context) string {
	if util.DisableLogin {
		return ""
	}

	sess, _ := session.Get(sessionName, c)
	username, _ := sess.Values["username"].(string)
	return username
}

// baseData for the dashboard layout
func baseData(c echo.Context, active string) model.BaseData {
	return model.BaseData{
		Active:      active,
		CurrentUser: currentUser(c),
		BasePath:    util.BasePath,
	}
}

// createSession stores a fresh session token for user
func createSession(c echo.Context, user model.User) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	token := xid.New().String()
	sess.Values["username"] = user.Username
	sess.Values[sessionTokenField] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionTokenField,
		Value:    token,
		Path:     util.BasePath + "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSession to remove current session
func clearSession(c echo.Context) {
	sess, _ := session.Get(sessionName, c)
	sess.Values["username"] = ""
	sess.Values[sessionTokenField] = ""
	sess.Options.MaxAge = -1
	sess.Save(c.Request(), c.Response())

	c.SetCookie(&http.Cookie{
		Name:   sessionTokenField,
		Path:   util.BasePath + "/",
		MaxAge: -1,
	})
}
