package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/rs/xid"

	"github.com/allura/allura-web/auth"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

type jsonHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decodeRequest binds the request into req and validates it.
// A non-empty result is the reason the request was rejected.
func decodeRequest(c echo.Context, req interface{}) string {
	if err := c.Bind(req); err != nil {
		return "Invalid request body"
	}
	if err := c.Validate(req); err != nil {
		return err.Error()
	}
	return ""
}

// Health handler
func Health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "ok"})
	}
}

// Register handler creates a user account and returns a bearer token
func Register(db store.IStore, tm *auth.TokenManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.RegisterRequest)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if _, err := db.GetUserByEmail(email); err == nil {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "User already exists"})
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Error("Cannot look up user: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}

		hash, err := util.HashPassword(req.Password)
		if err != nil {
			log.Error("Cannot hash password: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}

		plan := strings.TrimSpace(req.Plan)
		if plan == "" {
			plan = model.DefaultPlan
		}
		user := model.User{
			ID:           xid.New().String(),
			Username:     strings.TrimSpace(req.Username),
			Email:        email,
			PasswordHash: hash,
			Plan:         plan,
			CreatedAt:    time.Now().UTC(),
		}
		if err := db.SaveUser(user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "User already exists"})
			}
			log.Error("Cannot save user: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		log.Infof("Registered user %s (%s)", user.Username, user.Email)

		return authResponse(c, tm, user)
	}
}

// Login handler checks the credentials and returns a bearer token
func Login(db store.IStore, tm *auth.TokenManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.LoginRequest)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		user, err := db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "User not found"})
		} else if err != nil {
			log.Error("Cannot look up user: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}

		match, err := util.VerifyHash(user.PasswordHash, req.Password)
		if err != nil {
			log.Error("Cannot verify password hash: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		if !match {
			log.Warnf("Invalid credentials. Cannot authenticate user: %s", user.Email)
			return c.JSON(http.StatusUnauthorized, jsonHTTPResponse{false, "Invalid credentials"})
		}

		return authResponse(c, tm, user)
	}
}

func authResponse(c echo.Context, tm *auth.TokenManager, user model.User) error {
	token, err := tm.Issue(user)
	if err != nil {
		log.Error("Cannot issue token: ", err)
		return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, model.AuthResponse{
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.Admin,
	})
}
