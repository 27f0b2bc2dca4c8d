package util

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Runtime config
var (
	DisableLogin  bool
	BindAddress   string
	BasePath      string
	DBPath        string
	MediaPath     string
	SessionSecret []byte
	JWTSecret     []byte
	JWTIssuer     string
	JWTTTL        time.Duration
	PhoneRegion   string
	CORSOrigins   []string
)

const (
	DefaultBindAddress = "0.0.0.0:5000"
	DefaultDBPath      = "./db"
	DefaultMediaPath   = "./uploads"
	DefaultJWTIssuer   = "allura-web"
	DefaultJWTTTL      = 24 * time.Hour
	DefaultAdminEmail  = "admin@allura.local"
	DefaultAdminName   = "admin"
	DefaultPhoneRegion = "EG"
	DefaultBodyLimit   = "101M"

	LogLevel             = "LOG_LEVEL"
	AdminEmailEnvVar     = "ADMIN_EMAIL"
	AdminUsernameEnvVar  = "ADMIN_USERNAME"
	AdminPasswordEnvVar  = "ADMIN_PASSWORD"
	AdminPasswordHashEnv = "ADMIN_PASSWORD_HASH"
)

// Settings groups the integration credentials that are only read from the environment
type Settings struct {
	Mail     MailSettings     `envPrefix:"EMAIL_"`
	SMTP     SMTPSettings     `envPrefix:"SMTP_"`
	Sendgrid SendgridSettings `envPrefix:"SENDGRID_"`
	S3       S3Settings       `envPrefix:"S3_"`
	Telegram TelegramSettings `envPrefix:"TELEGRAM_"`
	Retry    RetrySettings    `envPrefix:"NOTIFY_RETRY_"`
}

// MailSettings for the notification mails
type MailSettings struct {
	From     string `env:"FROM_ADDRESS"`
	FromName string `env:"FROM_NAME" envDefault:"Allura"`
	Receiver string `env:"RECEIVER"`
}

// SMTPSettings for go-simple-mail
type SMTPSettings struct {
	Hostname   string `env:"HOSTNAME"`
	Port       int    `env:"PORT" envDefault:"587"`
	Username   string `env:"USERNAME"`
	Password   string `env:"PASSWORD"`
	AuthType   string `env:"AUTH_TYPE" envDefault:"LOGIN"`
	Encryption string `env:"ENCRYPTION" envDefault:"STARTTLS"`
	NoTLSCheck bool   `env:"NO_TLS_CHECK"`
}

// SendgridSettings for the sendgrid api mailer
type SendgridSettings struct {
	APIKey string `env:"API_KEY"`
}

// S3Settings for the media storage. An empty bucket means local storage.
type S3Settings struct {
	Bucket        string `env:"BUCKET"`
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Prefix        string `env:"PREFIX"`
	Endpoint      string `env:"ENDPOINT"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

// TelegramSettings for the chat notifier
type TelegramSettings struct {
	Token  string `env:"TOKEN"`
	ChatID int64  `env:"CHAT_ID"`
}

// RetrySettings for notification delivery
type RetrySettings struct {
	Attempts int           `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"2s"`
}

// LoadSettings reads the integration settings from the environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, err
	}
	if s.Mail.Receiver == "" {
		s.Mail.Receiver = s.Mail.From
	}
	return s, nil
}
