package emailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

type SmtpMail struct {
	hostname   string
	port       int
	username   string
	password   string
	authType   mail.AuthType
	encryption mail.Encryption
	noTLSCheck bool
	fromName   string
	from       string
	timeout    time.Duration
}

// SmtpConfig holds the relay settings
type SmtpConfig struct {
	Hostname   string
	Port       int
	Username   string
	Password   string
	NoTLSCheck bool
	AuthType   string
	Encryption string
	FromName   string
	From       string
}

func authType(authType string) mail.AuthType {
	switch strings.ToUpper(authType) {
	case "PLAIN":
		return mail.AuthPlain
	case "LOGIN":
		return mail.AuthLogin
	default:
		return mail.AuthNone
	}
}

func encryptionType(encryptionType string) mail.Encryption {
	switch strings.ToUpper(encryptionType) {
	case "NONE":
		return mail.EncryptionNone
	case "SSL":
		return mail.EncryptionSSL
	case "SSLTLS":
		return mail.EncryptionSSLTLS
	case "TLS":
		return mail.EncryptionTLS
	default:
		return mail.EncryptionSTARTTLS
	}
}

func NewSmtpMail(cfg SmtpConfig) *SmtpMail {
	return &SmtpMail{
		hostname:   cfg.Hostname,
		port:       cfg.Port,
		username:   cfg.Username,
		password:   cfg.Password,
		noTLSCheck: cfg.NoTLSCheck,
		fromName:   cfg.FromName,
		from:       cfg.From,
		authType:   authType(cfg.AuthType),
		encryption: encryptionType(cfg.Encryption),
		timeout:    10 * time.Second,
	}
}

func addressField(address string, name string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

func (o *SmtpMail) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	server := mail.NewSMTPClient()
	server.Host = o.hostname
	server.Port = o.port
	server.Authentication = o.authType
	server.Username = o.username
	server.Password = o.password
	server.Encryption = o.encryption
	server.KeepAlive = false
	server.ConnectTimeout = o.timeout
	server.SendTimeout = o.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < o.timeout {
			server.ConnectTimeout = left
			server.SendTimeout = left
		}
	}

	if o.noTLSCheck {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("cannot connect to smtp server %s:%d: %w", o.hostname, o.port, err)
	}

	email := mail.NewMSG()
	email.SetFrom(addressField(o.from, o.fromName)).
		AddTo(addressField(msg.To, msg.ToName)).
		SetSubject(msg.Subject).
		SetBody(mail.TextHTML, msg.HTML)

	for _, v := range msg.Attachments {
		email.Attach(&mail.File{Name: v.Name, Data: v.Data, MimeType: v.MimeType})
	}
	if email.Error != nil {
		return email.Error
	}

	return email.Send(smtpClient)
}
