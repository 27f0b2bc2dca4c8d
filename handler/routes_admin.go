package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

// LoginPage handler
func LoginPage() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, "login.html", map[string]interface{}{
			"basePath": util.BasePath,
		})
	}
}

// AdminLogin handler opens a dashboard session for admin accounts
func AdminLogin(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.LoginRequest)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		user, err := db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("Cannot look up user: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		match := false
		if err == nil {
			match, err = util.VerifyHash(user.PasswordHash, req.Password)
			if err != nil {
				log.Error("Cannot verify password hash: ", err)
			}
		}
		if !match || !user.Admin {
			log.Warnf("Rejected dashboard login for %s", req.Email)
			return c.JSON(http.StatusUnauthorized, jsonHTTPResponse{false, "Invalid credentials or insufficient permissions"})
		}

		if err := createSession(c, user); err != nil {
			log.Error("Cannot save session: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Cannot create session"})
		}
		log.Infof("Logged in to the dashboard: %s", user.Username)

		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Logged in successfully"})
	}
}

// AdminLogout handler
func AdminLogout() echo.HandlerFunc {
	return func(c echo.Context) error {
		clearSession(c)
		return c.Redirect(http.StatusTemporaryRedirect, util.BasePath+"/admin/login")
	}
}

// collectStats counts the stored records concurrently
func collectStats(db store.IStore) (model.Stats, error) {
	var (
		g                         errgroup.Group
		users, projects, contacts int
		applications              []model.Application
	)
	g.Go(func() error {
		list, err := db.GetUsers()
		users = len(list)
		return err
	})
	g.Go(func() error {
		list, err := db.GetProjects()
		projects = len(list)
		return err
	})
	g.Go(func() error {
		list, err := db.GetContacts()
		contacts = len(list)
		return err
	})
	g.Go(func() error {
		var err error
		applications, err = db.GetApplications()
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Stats{}, err
	}

	stats := model.Stats{
		Users:        users,
		Projects:     projects,
		Contacts:     contacts,
		Applications: make(map[model.ApplicationStatus]int, len(model.ApplicationStatuses)),
	}
	for _, s := range model.ApplicationStatuses {
		stats.Applications[s] = 0
	}
	for _, a := range applications {
		stats.Applications[a.Status]++
	}
	return stats, nil
}

// Dashboard handler
func Dashboard(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := collectStats(db)
		if err != nil {
			log.Error("Cannot collect dashboard stats: ", err)
		}
		return c.Render(http.StatusOK, "dashboard.html", map[string]interface{}{
			"baseData": baseData(c, "dashboard"),
			"stats":    stats,
		})
	}
}

// ContactsPage handler
func ContactsPage(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		contacts, err := db.GetContacts()
		if err != nil {
			log.Error("Cannot fetch contacts from database: ", err)
		}
		return c.Render(http.StatusOK, "contacts.html", map[string]interface{}{
			"baseData": baseData(c, "contacts"),
			"contacts": contacts,
		})
	}
}

// ApplicationsPage handler
func ApplicationsPage(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		applications, err := db.GetApplications()
		if err != nil {
			log.Error("Cannot fetch applications from database: ", err)
		}
		return c.Render(http.StatusOK, "applications.html", map[string]interface{}{
			"baseData":     baseData(c, "applications"),
			"applications": applications,
		})
	}
}

// ProjectsPage handler lists projects with a QR code of their public link
func ProjectsPage(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := db.GetProjects()
		if err != nil {
			log.Error("Cannot fetch projects from database: ", err)
		}

		projectDataList := make([]model.ProjectData, 0, len(projects))
		for i := range projects {
			projectData := model.ProjectData{Project: &projects[i]}

			link := projects[i].GithubLink
			if link == "" {
				link = projects[i].Video
			}
			if link != "" {
				png, err := qrcode.Encode(link, qrcode.Medium, 256)
				if err != nil {
					log.Error("Cannot generate QRCode: ", err)
				} else {
					projectData.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
				}
			}
			projectDataList = append(projectDataList, projectData)
		}

		return c.Render(http.StatusOK, "projects.html", map[string]interface{}{
			"baseData":        baseData(c, "projects"),
			"projectDataList": projectDataList,
		})
	}
}

// AdminSetApplicationStatus handler changes a status from the dashboard
func AdminSetApplicationStatus(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.StatusUpdate)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}
		if _, err := updateStatus(db, c.Param("id"), req.Status); err != nil {
			return statusError(c, err)
		}
		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Application status updated successfully"})
	}
}
