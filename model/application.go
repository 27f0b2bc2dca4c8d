package model

import (
	"time"
)

// ApplicationStatus is the review state of a join-us application
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusReviewed ApplicationStatus = "reviewed"
	StatusAccepted ApplicationStatus = "accepted"
	StatusRejected ApplicationStatus = "rejected"
)

// ApplicationStatuses in display order
var ApplicationStatuses = []ApplicationStatus{StatusPending, StatusReviewed, StatusAccepted, StatusRejected}

// Valid reports whether s is a known status
func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Roles offered on the join-us form
var Roles = []string{
	"Frontend Developer",
	"Backend Developer",
	"Full-Stack Developer",
	"UI/UX Designer",
	"Project Manager",
	"DevOps Engineer",
	"Mobile Developer",
	"Data Scientist",
	"QA Engineer",
	"Other",
}

// Application model
type Application struct {
	ID          string            `json:"id"`
	FullName    string            `json:"fullName"`
	Role        string            `json:"role"`
	Description string            `json:"description"`
	CVURL       string            `json:"cvUrl"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// StatusUpdate is the body of PUT /joinus/:id/status
type StatusUpdate struct {
	Status ApplicationStatus `json:"status" validate:"required"`
}

// ApplicationRequest holds the text fields of the multipart POST /joinus
type ApplicationRequest struct {
	FullName    string `form:"fullName" validate:"required"`
	Role        string `form:"role" validate:"required"`
	Description string `form:"description" validate:"required"`
}
