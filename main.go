package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/allura/allura-web/auth"
	"github.com/allura/allura-web/emailer"
	"github.com/allura/allura-web/handler"
	"github.com/allura/allura-web/mediastore"
	"github.com/allura/allura-web/notify"
	"github.com/allura/allura-web/router"
	"github.com/allura/allura-web/store"
	"github.com/allura/allura-web/store/jsondb"
	"github.com/allura/allura-web/telegram"
	"github.com/allura/allura-web/templates"
	"github.com/allura/allura-web/util"
)

var (
	// command-line banner information
	appVersion = "development"
	gitCommit  = "N/A"
	gitRef     = "N/A"
	buildTime  = time.Now().UTC().Format("01-02-2006 15:04:05")
	// configuration variables
	flagDisableLogin  bool   = false
	flagBindAddress   string = util.DefaultBindAddress
	flagBasePath      string
	flagDBPath        string = util.DefaultDBPath
	flagMediaPath     string = util.DefaultMediaPath
	flagSessionSecret string
	flagJWTSecret     string
	flagJWTIssuer     string = util.DefaultJWTIssuer
	flagJWTTTL        string = util.DefaultJWTTTL.String()
	flagPhoneRegion   string = util.DefaultPhoneRegion
	flagCORSOrigins   string
)

func init() {
	// a missing .env file is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Cannot load .env file:", err)
	}

	// command-line flags and env variables
	flag.BoolVar(&flagDisableLogin, "disable-login", util.LookupEnvOrBool("DISABLE_LOGIN", flagDisableLogin), "Disable the dashboard login page. Turn off authentication.")
	flag.StringVar(&flagBindAddress, "bind-address", util.LookupEnvOrString("BIND_ADDRESS", flagBindAddress), "Address:Port to which the app will be bound.")
	flag.StringVar(&flagBasePath, "base-path", util.LookupEnvOrString("BASE_PATH", flagBasePath), "The base path of the URL")
	flag.StringVar(&flagDBPath, "db-path", util.LookupEnvOrString("DB_PATH", flagDBPath), "Directory of the JSON document store.")
	flag.StringVar(&flagMediaPath, "media-path", util.LookupEnvOrString("MEDIA_PATH", flagMediaPath), "Directory for uploads when S3 is not configured.")
	flag.StringVar(&flagSessionSecret, "session-secret", util.LookupEnvOrString("SESSION_SECRET", flagSessionSecret), "The key used to encrypt session cookies.")
	flag.StringVar(&flagJWTSecret, "jwt-secret", util.LookupEnvOrString("JWT_SECRET", flagJWTSecret), "The key used to sign API tokens.")
	flag.StringVar(&flagJWTIssuer, "jwt-issuer", util.LookupEnvOrString("JWT_ISSUER", flagJWTIssuer), "Issuer of API tokens.")
	flag.StringVar(&flagJWTTTL, "jwt-ttl", util.LookupEnvOrString("JWT_TTL", flagJWTTTL), "Lifetime of API tokens.")
	flag.StringVar(&flagPhoneRegion, "phone-region", util.LookupEnvOrString("PHONE_REGION", flagPhoneRegion), "Default region for contact phone numbers.")
	flag.StringVar(&flagCORSOrigins, "cors-origins", util.LookupEnvOrString("CORS_ORIGINS", flagCORSOrigins), "Comma separated list of allowed origins.")
	flag.Parse()

	ttl, err := time.ParseDuration(flagJWTTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid token lifetime %q, using %s\n", flagJWTTTL, util.DefaultJWTTTL)
		ttl = util.DefaultJWTTTL
	}

	// update runtime config
	util.DisableLogin = flagDisableLogin
	util.BindAddress = flagBindAddress
	util.BasePath = strings.TrimRight(flagBasePath, "/")
	util.DBPath = flagDBPath
	util.MediaPath = flagMediaPath
	util.SessionSecret = []byte(flagSessionSecret)
	util.JWTSecret = []byte(flagJWTSecret)
	util.JWTIssuer = flagJWTIssuer
	util.JWTTTL = ttl
	util.PhoneRegion = strings.ToUpper(flagPhoneRegion)
	for _, origin := range strings.Split(flagCORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			util.CORSOrigins = append(util.CORSOrigins, origin)
		}
	}

	// print app information
	fmt.Println("Allura Web")
	fmt.Println("App Version\t:", appVersion)
	fmt.Println("Git Commit\t:", gitCommit)
	fmt.Println("Git Ref\t\t:", gitRef)
	fmt.Println("Build Time\t:", buildTime)
	fmt.Println("Authentication\t:", !util.DisableLogin)
	fmt.Println("Bind address\t:", util.BindAddress)
	fmt.Println("Base path\t:", util.BasePath)
	fmt.Println("DB path\t\t:", util.DBPath)
}

func main() {
	if len(util.SessionSecret) == 0 || len(util.JWTSecret) == 0 {
		log.Fatal("SESSION_SECRET and JWT_SECRET must be set")
	}

	settings, err := util.LoadSettings()
	if err != nil {
		log.Fatal("Cannot parse settings: ", err)
	}

	db, err := jsondb.New(util.DBPath)
	if err != nil {
		log.Fatal("Cannot create the database: ", err)
	}
	if err := db.Init(); err != nil {
		log.Fatal("Cannot init database: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	media, localMedia := newMediaStorage(ctx, settings.S3)
	notifier := newNotifier(settings)
	tm := auth.NewTokenManager(util.JWTSecret, util.JWTIssuer, util.JWTTTL)

	// set app extra data
	extraData := make(map[string]string)
	extraData["appVersion"] = appVersion
	extraData["basePath"] = util.BasePath

	// register routes
	app := router.New(templates.FS, extraData, util.SessionSecret)
	registerRoutes(app.Group(util.BasePath), db, media, notifier, tm)
	if localMedia != nil {
		app.Static(util.BasePath+"/media", localMedia.Root())
	}

	go func() {
		if err := app.Start(util.BindAddress); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error("Cannot shut down the web server: ", err)
	}
	notifier.Wait()
}

func registerRoutes(g *echo.Group, db store.IStore, media mediastore.Storage, notifier *notify.Notifier, tm *auth.TokenManager) {
	g.GET("/health", handler.Health())

	// REST API
	g.POST("/user/register", handler.Register(db, tm))
	g.POST("/user/login", handler.Login(db, tm))

	g.POST("/contact", handler.NewContact(db, notifier))
	g.GET("/contact", handler.GetContacts(db), tm.AdminToken)

	g.POST("/joinus", handler.NewApplication(db, media, notifier))
	g.GET("/joinus", handler.GetApplications(db), tm.AdminToken)
	g.PUT("/joinus/:id/status", handler.SetApplicationStatus(db), tm.AdminToken)

	g.GET("/projects", handler.GetProjects(db))
	g.GET("/projects/:id", handler.GetProject(db))
	g.POST("/projects", handler.NewProject(db), tm.AdminToken)
	g.PUT("/projects/:id", handler.UpdateProject(db), tm.AdminToken)
	g.DELETE("/projects/:id", handler.RemoveProject(db), tm.AdminToken)

	g.POST("/upload/video", handler.UploadVideo(media), tm.AdminToken)

	// admin dashboard
	if !util.DisableLogin {
		g.GET("/admin/login", handler.LoginPage())
		g.POST("/admin/login", handler.AdminLogin(db), handler.ContentTypeJson)
	}
	g.GET("/admin/logout", handler.AdminLogout(), handler.ValidSession)
	g.GET("/admin", handler.Dashboard(db), handler.ValidSession)
	g.GET("/admin/contacts", handler.ContactsPage(db), handler.ValidSession)
	g.GET("/admin/applications", handler.ApplicationsPage(db), handler.ValidSession)
	g.GET("/admin/projects", handler.ProjectsPage(db), handler.ValidSession)
	g.POST("/admin/applications/:id/status", handler.AdminSetApplicationStatus(db), handler.ValidSession, handler.ContentTypeJson)
}

// newMediaStorage picks S3 when a bucket is configured and falls back to the local directory
func newMediaStorage(ctx context.Context, cfg util.S3Settings) (mediastore.Storage, *mediastore.LocalStorage) {
	if cfg.Bucket != "" {
		s3Storage, err := mediastore.NewS3Storage(ctx, mediastore.S3Config{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Prefix:        cfg.Prefix,
			Endpoint:      cfg.Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err == nil {
			log.Infof("Storing media in S3 bucket %s", cfg.Bucket)
			return s3Storage, nil
		}
		log.Error("Cannot set up S3 media storage, falling back to local storage: ", err)
	}

	local, err := mediastore.NewLocalStorage(util.MediaPath, util.BasePath+"/media")
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Storing media in %s", local.Root())
	return local, local
}

// newNotifier selects the mail transport and the optional Telegram bot
func newNotifier(settings util.Settings) *notify.Notifier {
	var mailer emailer.Emailer = emailer.Disabled{}
	switch {
	case settings.SMTP.Hostname != "":
		mailer = emailer.NewSmtpMail(emailer.SmtpConfig{
			Hostname:   settings.SMTP.Hostname,
			Port:       settings.SMTP.Port,
			Username:   settings.SMTP.Username,
			Password:   settings.SMTP.Password,
			NoTLSCheck: settings.SMTP.NoTLSCheck,
			AuthType:   settings.SMTP.AuthType,
			Encryption: settings.SMTP.Encryption,
			FromName:   settings.Mail.FromName,
			From:       settings.Mail.From,
		})
		log.Infof("Sending notification mail through %s", settings.SMTP.Hostname)
	case settings.Sendgrid.APIKey != "":
		mailer = emailer.NewSendgridApiMail(settings.Sendgrid.APIKey, settings.Mail.FromName, settings.Mail.From)
		log.Info("Sending notification mail through SendGrid")
	default:
		log.Warn("No mail transport configured, notification mail is disabled")
	}

	opts := []notify.Option{
		notify.WithRetryPolicy(notify.RetryPolicy{
			Attempts:   settings.Retry.Attempts,
			Delay:      settings.Retry.Delay,
			Multiplier: 2,
		}),
	}
	if settings.Telegram.Token != "" {
		bot, err := telegram.Start(settings.Telegram.Token, settings.Telegram.ChatID)
		if err != nil {
			log.Error("Cannot start the Telegram bot: ", err)
		} else {
			opts = append(opts, notify.WithChat(bot))
		}
	}

	return notify.New(mailer, settings.Mail.Receiver, opts...)
}
