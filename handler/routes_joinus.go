package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/rs/xid"

	"github.com/allura/allura-web/mediastore"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/notify"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

// NewApplication handler stores a join-us application with its CV
func NewApplication(db store.IStore, media mediastore.Storage, notifier *notify.Notifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.ApplicationRequest)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		fh, err := c.FormFile("cv")
		if err != nil {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "CV file is required"})
		}
		file, err := fh.Open()
		if err != nil {
			log.Error("Cannot open uploaded CV: ", err)
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "CV file is required"})
		}
		defer file.Close()

		mtype, err := mediastore.DetectDocument(fh.Filename, file, fh.Size)
		switch {
		case errors.Is(err, mediastore.ErrTooLarge):
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "CV file must be 10MB or smaller"})
		case errors.Is(err, mediastore.ErrUnsupportedType):
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Only PDF, DOC and DOCX files are allowed"})
		case err != nil:
			log.Error("Cannot inspect uploaded CV: ", err)
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "CV file could not be read"})
		}

		id := xid.New().String()
		key := fmt.Sprintf("cvs/cv-%s%s", id, util.FileExt(fh.Filename))
		obj, err := media.Put(c.Request().Context(), key, mtype.String(), file, fh.Size)
		if err != nil {
			log.Error("Cannot store CV: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to submit application"})
		}

		now := time.Now().UTC()
		application := model.Application{
			ID:          id,
			FullName:    strings.TrimSpace(req.FullName),
			Role:        strings.TrimSpace(req.Role),
			Description: req.Description,
			CVURL:       obj.URL,
			Status:      model.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := db.SaveApplication(application); err != nil {
			log.Error("Cannot save application: ", err)
			if derr := media.Delete(context.Background(), obj.Key); derr != nil {
				log.Warnf("Cannot remove orphaned CV %s: %v", obj.Key, derr)
			}
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to submit application"})
		}
		log.Infof("New application from %s for %s", application.FullName, application.Role)

		notifier.Dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			notifier.ApplicationSubmitted(ctx, application)
		})

		return c.JSON(http.StatusCreated, echo.Map{
			"message":     "Application submitted successfully",
			"application": application,
		})
	}
}

// GetApplications handler
func GetApplications(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		applications, err := db.GetApplications()
		if err != nil {
			log.Error("Cannot fetch applications from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to retrieve applications"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"message":      "Applications retrieved successfully",
			"applications": applications,
		})
	}
}

// SetApplicationStatus handler
func SetApplicationStatus(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.StatusUpdate)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		application, err := updateStatus(db, c.Param("id"), req.Status)
		if err != nil {
			return statusError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"message":     "Application status updated successfully",
			"application": application,
		})
	}
}

var errInvalidStatus = errors.New("invalid status")

func updateStatus(db store.IStore, id string, status model.ApplicationStatus) (model.Application, error) {
	if !status.Valid() {
		return model.Application{}, errInvalidStatus
	}
	application, err := db.GetApplicationByID(id)
	if err != nil {
		return model.Application{}, err
	}
	application.Status = status
	application.UpdatedAt = time.Now().UTC()
	if err := db.SaveApplication(application); err != nil {
		return model.Application{}, err
	}
	log.Infof("Application %s is now %s", id, status)
	return application, nil
}

func statusError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errInvalidStatus):
		return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Invalid status"})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "Application not found"})
	default:
		log.Error("Cannot update application status: ", err)
		return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to update application status"})
	}
}
