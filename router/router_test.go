package router

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/templates"
)

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&model.RegisterRequest{Username: "ab", Email: "a@b.co", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, "username must be at least 3 characters", err.Error())

	err = v.Validate(&model.RegisterRequest{Username: "alice", Email: "nope", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, "email is invalid", err.Error())

	err = v.Validate(&model.Contact{FirstName: "a", LastName: "b", ProjectDescription: "c", PhoneNumber: "1", PotentialBudget: "x", ProjectTypes: []string{}})
	require.Error(t, err)
	assert.Equal(t, "projectTypes must have at least 1 item(s)", err.Error())

	assert.NoError(t, v.Validate(&model.RegisterRequest{Username: "alice", Email: "a@b.co", Password: "secret"}))
}

func TestTemplateRegistryMissingFile(t *testing.T) {
	_, err := NewTemplateRegistry(fstest.MapFS{}, nil)
	assert.Error(t, err)
}

func TestRenderDashboardPages(t *testing.T) {
	reg, err := NewTemplateRegistry(templates.FS, map[string]string{"appVersion": "test"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = reg.Render(&buf, "dashboard.html", map[string]interface{}{
		"baseData": model.BaseData{Active: "dashboard", CurrentUser: "root"},
		"stats": model.Stats{
			Users:        2,
			Applications: map[model.ApplicationStatus]int{model.StatusPending: 3, model.StatusAccepted: 1},
		},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "root")
	assert.Contains(t, buf.String(), "<p>4</p>")

	buf.Reset()
	project := model.Project{Name: "Atlas", Video: "https://cdn/v.mp4", Tags: []string{"go", "web"}}
	err = reg.Render(&buf, "projects.html", map[string]interface{}{
		"baseData":        model.BaseData{Active: "projects"},
		"projectDataList": []model.ProjectData{{Project: &project, QRCode: "data:image/png;base64,AAAA"}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, buf.String(), "go, web")

	buf.Reset()
	require.NoError(t, reg.Render(&buf, "login.html", map[string]interface{}{"basePath": ""}, nil))
	assert.Contains(t, buf.String(), "Admin Login")

	assert.Error(t, reg.Render(&buf, "missing.html", nil, nil))
}
