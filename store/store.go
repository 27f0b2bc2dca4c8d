package store

import (
	"errors"

	"github.com/allura/allura-web/model"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken
	ErrDuplicate = errors.New("record already exists")
)

type IStore interface {
	Init() error
	GetUsers() ([]model.User, error)
	GetUserByID(id string) (model.User, error)
	GetUserByEmail(email string) (model.User, error)
	SaveUser(user model.User) error
	GetProjects() ([]model.Project, error)
	GetProjectByID(id string) (model.Project, error)
	GetProjectByName(name string) (model.Project, error)
	SaveProject(project model.Project) error
	DeleteProject(id string) error
	GetContacts() ([]model.Contact, error)
	SaveContact(contact model.Contact) error
	GetApplications() ([]model.Application, error)
	GetApplicationByID(id string) (model.Application, error)
	SaveApplication(application model.Application) error
}
