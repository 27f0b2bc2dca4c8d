package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/rs/xid"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/store"
)

// GetProjects handler
func GetProjects(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := db.GetProjects()
		if err != nil {
			log.Error("Cannot fetch projects from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		if len(projects) == 0 {
			return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "No projects found"})
		}
		return c.JSON(http.StatusOK, projects)
	}
}

// GetProject handler
func GetProject(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		project, err := db.GetProjectByID(c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "Project not found"})
		} else if err != nil {
			log.Error("Cannot fetch project from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		return c.JSON(http.StatusOK, project)
	}
}

// NewProject handler
func NewProject(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(model.ProjectRequest)
		if msg := decodeRequest(c, req); msg != "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, msg})
		}

		now := time.Now().UTC()
		project := model.Project{
			ID:          xid.New().String(),
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Video:       req.Video,
			Tags:        normaliseTags(req.Tags),
			GithubLink:  req.GithubLink,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := db.SaveProject(project); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Project already exists"})
			}
			log.Error("Cannot save project: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "failed creating project"})
		}
		log.Infof("Created project: %s", project.Name)

		return c.JSON(http.StatusCreated, project)
	}
}

// UpdateProject handler applies a partial update
func UpdateProject(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		update := new(model.ProjectUpdate)
		if err := c.Bind(update); err != nil {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Invalid request body"})
		}

		project, err := db.GetProjectByID(c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "Project not found"})
		} else if err != nil {
			log.Error("Cannot fetch project from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}

		update.Apply(&project)
		project.Name = strings.TrimSpace(project.Name)
		project.Tags = normaliseTags(project.Tags)
		if project.Name == "" {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "name is required"})
		}
		project.UpdatedAt = time.Now().UTC()

		if err := db.SaveProject(project); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Project already exists"})
			}
			log.Error("Cannot update project: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		log.Infof("Updated project: %s", project.Name)

		return c.JSON(http.StatusOK, project)
	}
}

// RemoveProject handler
func RemoveProject(db store.IStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := db.DeleteProject(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, jsonHTTPResponse{false, "Project not found"})
			}
			log.Error("Cannot delete project from database: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Internal Server Error"})
		}
		log.Infof("Removed project: %s", id)

		return c.JSON(http.StatusOK, jsonHTTPResponse{true, "Project deleted successfully"})
	}
}

func normaliseTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
