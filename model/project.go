package model

import (
	"time"
)

// Project model
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Video       string    `json:"video"`
	Tags        []string  `json:"tags"`
	GithubLink  string    `json:"githubLink,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectData includes the Project and extra data for the dashboard
type ProjectData struct {
	Project *Project
	QRCode  string
}

// ProjectRequest is the body of POST /projects
type ProjectRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Video       string   `json:"video" validate:"required"`
	Tags        []string `json:"tags"`
	GithubLink  string   `json:"githubLink" validate:"omitempty,url"`
}

// ProjectUpdate is the body of PUT /projects/:id. Nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Video       *string   `json:"video"`
	Tags        *[]string `json:"tags"`
	GithubLink  *string   `json:"githubLink"`
}

// Apply copies the set fields of the update onto p
func (u ProjectUpdate) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Video != nil {
		p.Video = *u.Video
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.GithubLink != nil {
		p.GithubLink = *u.GithubLink
	}
}

// VideoUpload is the response of POST /upload/video
type VideoUpload struct {
	Success  bool    `json:"success"`
	VideoURL string  `json:"videoUrl"`
	PublicID string  `json:"publicId"`
	Duration float64 `json:"duration"`
}
