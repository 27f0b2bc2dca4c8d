package model

import (
	"time"
)

// ProjectTypes offered on the contact form
var ProjectTypes = []string{
	"Web App",
	"Mobile App",
	"Desktop App",
}

// BudgetRanges offered on the contact form
var BudgetRanges = []string{
	"Under $ EGP 5,000",
	"$ EGP 10,000 - $ EGP 15,000",
	"$ EGP 15,000 - $ EGP 20,000",
	"$ EGP 20,000 - $ EGP 25,000",
	"$ EGP 25,000 - $ EGP 50,000",
	"Over $ EGP 50,000",
}

// Contact model
type Contact struct {
	ID                 string    `json:"id"`
	FirstName          string    `json:"firstName" validate:"required"`
	LastName           string    `json:"lastName" validate:"required"`
	ProjectTypes       []string  `json:"projectTypes" validate:"required,min=1"`
	ProjectDescription string    `json:"projectDescription" validate:"required"`
	PhoneNumber        string    `json:"phoneNumber" validate:"required"`
	PotentialBudget    string    `json:"potentialBudget" validate:"required"`
	CreatedAt          time.Time `json:"createdAt"`
}

// FullName of the person who sent the contact request
func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}
