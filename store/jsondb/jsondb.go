package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/rs/xid"
	"github.com/sdomino/scribble"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

const (
	usersCollection        = "users"
	projectsCollection     = "projects"
	contactsCollection     = "contacts"
	applicationsCollection = "applications"
)

type JsonDB struct {
	conn   *scribble.Driver
	dbPath string
	// uniqueMu is held across the uniqueness check and the write
	uniqueMu sync.Mutex
}

// New returns a new pointer JsonDB
func New(dbPath string) (*JsonDB, error) {
	conn, err := scribble.New(dbPath, nil)
	if err != nil {
		return nil, err
	}
	ans := JsonDB{
		conn:   conn,
		dbPath: dbPath,
	}
	return &ans, nil
}

func (o *JsonDB) Init() error {
	// create directories if they do not exist
	for _, collection := range []string{usersCollection, projectsCollection, contactsCollection, applicationsCollection} {
		collectionPath := path.Join(o.dbPath, collection)
		if _, err := os.Stat(collectionPath); os.IsNotExist(err) {
			if err := os.MkdirAll(collectionPath, os.ModePerm); err != nil {
				return err
			}
		}
	}

	// seed the admin account
	users, err := o.GetUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Admin {
			return nil
		}
	}

	admin := model.User{
		ID:        xid.New().String(),
		Username:  util.LookupEnvOrString(util.AdminUsernameEnvVar, util.DefaultAdminName),
		Email:     strings.ToLower(util.LookupEnvOrString(util.AdminEmailEnvVar, util.DefaultAdminEmail)),
		Plan:      model.DefaultPlan,
		Admin:     true,
		CreatedAt: time.Now().UTC(),
	}
	admin.PasswordHash = util.LookupEnvOrString(util.AdminPasswordHashEnv, "")
	if admin.PasswordHash == "" {
		plaintext, ok := os.LookupEnv(util.AdminPasswordEnvVar)
		if !ok || plaintext == "" {
			log.Warnf("No admin account exists and %s is not set, skipping admin seed", util.AdminPasswordEnvVar)
			return nil
		}
		hash, err := util.HashPassword(plaintext)
		if err != nil {
			return err
		}
		admin.PasswordHash = hash
	}
	log.Infof("Seeding admin account %s", admin.Email)
	return o.SaveUser(admin)
}

// readAll decodes every document of a collection with the decode callback
func (o *JsonDB) readAll(collection string, decode func([]byte) error) error {
	records, err := o.conn.ReadAll(collection)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, f := range records {
		if err := decode([]byte(f)); err != nil {
			return fmt.Errorf("cannot decode %s json structure: %v", collection, err)
		}
	}
	return nil
}

func (o *JsonDB) read(collection, id string, v interface{}) error {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return store.ErrNotFound
	}
	if err := o.conn.Read(collection, id, v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// GetUsers func to get all users from the database
func (o *JsonDB) GetUsers() ([]model.User, error) {
	users := []model.User{}
	err := o.readAll(usersCollection, func(b []byte) error {
		user := model.User{}
		if err := json.Unmarshal(b, &user); err != nil {
			return err
		}
		users = append(users, user)
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, err
}

// GetUserByID func to get single user from the database
func (o *JsonDB) GetUserByID(id string) (model.User, error) {
	user := model.User{}
	return user, o.read(usersCollection, id, &user)
}

// GetUserByEmail looks a user up by email, ignoring case
func (o *JsonDB) GetUserByEmail(email string) (model.User, error) {
	users, err := o.GetUsers()
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

// SaveUser func to save user in the database
func (o *JsonDB) SaveUser(user model.User) error {
	o.uniqueMu.Lock()
	defer o.uniqueMu.Unlock()
	existing, err := o.GetUserByEmail(user.Email)
	if err == nil && existing.ID != user.ID {
		return store.ErrDuplicate
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return o.conn.Write(usersCollection, user.ID, user)
}

// GetProjects returns all projects, newest first
func (o *JsonDB) GetProjects() ([]model.Project, error) {
	projects := []model.Project{}
	err := o.readAll(projectsCollection, func(b []byte) error {
		project := model.Project{}
		if err := json.Unmarshal(b, &project); err != nil {
			return err
		}
		projects = append(projects, project)
		return nil
	})
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects, err
}

func (o *JsonDB) GetProjectByID(id string) (model.Project, error) {
	project := model.Project{}
	return project, o.read(projectsCollection, id, &project)
}

// GetProjectByName looks a project up by its exact name
func (o *JsonDB) GetProjectByName(name string) (model.Project, error) {
	projects, err := o.GetProjects()
	if err != nil {
		return model.Project{}, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Project{}, store.ErrNotFound
}

func (o *JsonDB) SaveProject(project model.Project) error {
	o.uniqueMu.Lock()
	defer o.uniqueMu.Unlock()
	existing, err := o.GetProjectByName(project.Name)
	if err == nil && existing.ID != project.ID {
		return store.ErrDuplicate
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return o.conn.Write(projectsCollection, project.ID, project)
}

func (o *JsonDB) DeleteProject(id string) error {
	if _, err := o.GetProjectByID(id); err != nil {
		return err
	}
	return o.conn.Delete(projectsCollection, id)
}

// GetContacts returns all contact submissions, newest first
func (o *JsonDB) GetContacts() ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := o.readAll(contactsCollection, func(b []byte) error {
		contact := model.Contact{}
		if err := json.Unmarshal(b, &contact); err != nil {
			return err
		}
		contacts = append(contacts, contact)
		return nil
	})
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].CreatedAt.After(contacts[j].CreatedAt) })
	return contacts, err
}

func (o *JsonDB) SaveContact(contact model.Contact) error {
	return o.conn.Write(contactsCollection, contact.ID, contact)
}

// GetApplications returns all join-us applications, newest first
func (o *JsonDB) GetApplications() ([]model.Application, error) {
	applications := []model.Application{}
	err := o.readAll(applicationsCollection, func(b []byte) error {
		application := model.Application{}
		if err := json.Unmarshal(b, &application); err != nil {
			return err
		}
		applications = append(applications, application)
		return nil
	})
	sort.Slice(applications, func(i, j int) bool {
		return applications[i].CreatedAt.After(applications[j].CreatedAt)
	})
	return applications, err
}

func (o *JsonDB) GetApplicationByID(id string) (model.Application, error) {
	application := model.Application{}
	return application, o.read(applicationsCollection, id, &application)
}

func (o *JsonDB) SaveApplication(application model.Application) error {
	return o.conn.Write(applicationsCollection, application.ID, application)
}
