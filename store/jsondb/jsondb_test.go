package jsondb

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/util"
)

func newTestDB(t *testing.T) *JsonDB {
	t.Helper()
	util.BcryptCost = bcrypt.MinCost
	db, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, db.Init())
	return db
}

func TestInitSeedsAdminFromEnv(t *testing.T) {
	t.Setenv(util.AdminEmailEnvVar, "Boss@Example.com")
	t.Setenv(util.AdminPasswordEnvVar, "s3cret!")
	t.Setenv(util.AdminPasswordHashEnv, "")
	db := newTestDB(t)

	admin, err := db.GetUserByEmail("boss@example.com")
	require.NoError(t, err)
	assert.True(t, admin.Admin)
	ok, err := util.VerifyHash(admin.PasswordHash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	// a second Init must not seed another admin
	require.NoError(t, db.Init())
	users, err := db.GetUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestInitSkipsSeedWithoutPassword(t *testing.T) {
	t.Setenv(util.AdminPasswordEnvVar, "")
	t.Setenv(util.AdminPasswordHashEnv, "")
	db := newTestDB(t)
	users, err := db.GetUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSaveUserRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.SaveUser(model.User{ID: "u1", Username: "bob", Email: "bob@example.com"}))

	err := db.SaveUser(model.User{ID: "u2", Username: "bobby", Email: "BOB@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// updating the same user keeps working
	require.NoError(t, db.SaveUser(model.User{ID: "u1", Username: "robert", Email: "bob@example.com"}))
	u, err := db.GetUserByID("u1")
	require.NoError(t, err)
	assert.Equal(t, "robert", u.Username)
}

func TestProjectLifecycle(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.SaveProject(model.Project{ID: "p1", Name: "Alpha", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.SaveProject(model.Project{ID: "p2", Name: "Beta", CreatedAt: now}))
	assert.ErrorIs(t, db.SaveProject(model.Project{ID: "p3", Name: "Alpha"}), store.ErrDuplicate)

	projects, err := db.GetProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "p2", projects[0].ID, "newest project first")

	byName, err := db.GetProjectByName("Beta")
	require.NoError(t, err)
	assert.Equal(t, "p2", byName.ID)

	require.NoError(t, db.DeleteProject("p1"))
	_, err = db.GetProjectByID("p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, db.DeleteProject("p1"), store.ErrNotFound)
}

func TestApplicationsAndContacts(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveContact(model.Contact{ID: "c1", FirstName: "Ada", CreatedAt: time.Now()}))
	contacts, err := db.GetContacts()
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ada", contacts[0].FirstName)

	require.NoError(t, db.SaveApplication(model.Application{ID: "a1", FullName: "Grace", Status: model.StatusPending}))
	app, err := db.GetApplicationByID("a1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, app.Status)

	_, err = db.GetApplicationByID("../users/a1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentSavesKeepEmailsUnique(t *testing.T) {
	t.Setenv(util.AdminPasswordEnvVar, "")
	t.Setenv(util.AdminPasswordHashEnv, "")
	db := newTestDB(t)

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.SaveUser(model.User{ID: fmt.Sprintf("u%d", i), Username: "same", Email: "same@example.com"})
		}(i)
	}
	wg.Wait()

	saved := 0
	for _, err := range errs {
		if err == nil {
			saved++
			continue
		}
		assert.ErrorIs(t, err, store.ErrDuplicate)
	}
	assert.Equal(t, 1, saved)
	users, err := db.GetUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestConcurrentSavesKeepProjectNamesUnique(t *testing.T) {
	t.Setenv(util.AdminPasswordEnvVar, "")
	t.Setenv(util.AdminPasswordHashEnv, "")
	db := newTestDB(t)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = db.SaveProject(model.Project{ID: fmt.Sprintf("p%d", i), Name: "Alpha"})
		}(i)
	}
	wg.Wait()

	projects, err := db.GetProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
