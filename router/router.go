package router

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/util"
)

// dashboardPages are rendered inside base.html
var dashboardPages = []string{
	"dashboard.html",
	"contacts.html",
	"applications.html",
	"projects.html",
}

// TemplateRegistry is a custom html/template renderer for Echo framework
type TemplateRegistry struct {
	templates map[string]*template.Template
	extraData map[string]string
}

// Render e.Renderer interface
func (t *TemplateRegistry) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		err := errors.New("Template not found -> " + name)
		return err
	}

	// inject more app data information. E.g. appVersion
	if data != nil && reflect.TypeOf(data).Kind() == reflect.Map {
		if m, ok := data.(map[string]interface{}); ok {
			for k, v := range t.extraData {
				m[k] = v
			}
		}
	}

	// login page does not need the base layout
	if name == "login.html" {
		return tmpl.Execute(w, data)
	}

	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// NewTemplateRegistry parses the dashboard templates found in tmplDir
func NewTemplateRegistry(tmplDir fs.FS, extraData map[string]string) (*TemplateRegistry, error) {
	funcs := template.FuncMap{
		"StringsJoin": strings.Join,
		"StatusList":  func() []model.ApplicationStatus { return model.ApplicationStatuses },
		"FormatTime":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		// QR codes are generated server side as data URIs
		"DataURI": func(s string) template.URL { return template.URL(s) },
	}

	tmplBaseString, err := util.StringFromEmbedFile(tmplDir, "base.html")
	if err != nil {
		return nil, err
	}
	tmplLoginString, err := util.StringFromEmbedFile(tmplDir, "login.html")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template)
	templates["login.html"], err = template.New("login").Funcs(funcs).Parse(tmplLoginString)
	if err != nil {
		return nil, err
	}
	for _, page := range dashboardPages {
		pageString, err := util.StringFromEmbedFile(tmplDir, page)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(page, ".html")
		templates[page], err = template.New(name).Funcs(funcs).Parse(tmplBaseString + pageString)
		if err != nil {
			return nil, err
		}
	}

	return &TemplateRegistry{templates: templates, extraData: extraData}, nil
}

// New function
func New(tmplDir fs.FS, extraData map[string]string, secret []byte) *echo.Echo {
	e := echo.New()

	cookieStore := sessions.NewCookieStore(secret)
	cookieStore.Options.Path = util.BasePath + "/"
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.MaxAge = 86400 * 7
	e.Use(session.Middleware(cookieStore))

	registry, err := NewTemplateRegistry(tmplDir, extraData)
	if err != nil {
		log.Fatal(err)
	}

	lvl, err := util.ParseLogLevel(util.LookupEnvOrString(util.LogLevel, "INFO"))
	if err != nil {
		log.Fatal(err)
	}
	logConfig := middleware.DefaultLoggerConfig
	logConfig.Skipper = func(c echo.Context) bool {
		resp := c.Response()
		if resp.Status >= 500 && lvl > log.ERROR { // do not log if response is 5XX but log level is higher than ERROR
			return true
		} else if resp.Status >= 400 && resp.Status < 500 && lvl > log.WARN { // do not log if response is 4XX but log level is higher than WARN
			return true
		} else if resp.Status < 400 && lvl > log.DEBUG { // do not log if log level is higher than DEBUG
			return true
		}
		return false
	}

	corsConfig := middleware.DefaultCORSConfig
	if len(util.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = util.CORSOrigins
	}

	e.Logger.SetLevel(lvl)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.LoggerWithConfig(logConfig))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(corsConfig))
	e.Use(middleware.BodyLimit(util.DefaultBodyLimit))
	e.HideBanner = true
	e.HidePort = lvl > log.INFO // hide the port output if the log level is higher than INFO
	e.Validator = NewValidator()
	e.Renderer = registry

	return e
}
