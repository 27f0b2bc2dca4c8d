package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/xid"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/notify"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

// notifyTimeout bounds all retries of one background notification
const notifyTimeout = 2 * time.Minute

// NewContact handler stores a contact request and notifies the team
func NewContact(db store.IStore, notifier *notify.Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		contact := new(model.Contact)
		if msg := decodeRequest(c, contact); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		contact.ID = xid.New().String()
		contact.FirstName = strings.TrimSpace(contact.FirstName)
		contact.LastName = strings.TrimSpace(contact.LastName)
		contact.PhoneNumber = normalisePhone(contact.PhoneNumber, util.PhoneRegion)
		contact.CreatedAt = time.Now().UTC()

		if err := db.SaveContact(*contact); err != nil {
			log.Error("Cannot save contact: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to submit contact form"})
		}
		log.Infof("New contact request from %s", contact.FullName())

		saved := *contact
		notifier.Dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			notifier.ContactSubmitted(ctx, saved)
		})

		return c.JSON(http.StatusCreated, echo.Map{
			"message": "Contact form submitted successfully",
			"contact": saved,
		})
	}
}

// GetContacts handler
func GetContacts(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		contacts, err := db.GetContacts()
		if err != nil {
			log.Error("Cannot fetch contacts from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to retrieve contacts"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"message":  "Contacts retrieved successfully",
			"contacts": contacts,
		})
	}
}

// normalisePhone formats valid numbers as E.164 and keeps anything else as typed
func normalisePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
