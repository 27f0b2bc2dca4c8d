package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/NicoNex/echotron/v3"
	"github.com/labstack/gommon/log"
)

// ErrNotConfigured is returned by Start when no usable token is given
var ErrNotConfigured = errors.New("telegram bot is not configured")

// Bot posts plain text notifications into a single chat
type Bot struct {
	api    echotron.API
	chatID int64
}

// Start checks the token against the Telegram API and returns a ready bot
func Start(token string, chatID int64) (bot *Bot, err error) {
	defer func() {
		if r := recover(); r != nil {
			bot = nil
			err = fmt.Errorf("[PANIC] recovered from panic: %v", r)
		}
	}()

	if token == "" || len(token) < 30 || chatID == 0 {
		return nil, ErrNotConfigured
	}

	api := echotron.NewAPI(token)
	res, err := api.GetMe()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to bot: %w", err)
	}
	if !res.Ok {
		return nil, fmt.Errorf("unable to connect to bot: %s", res.Description)
	}

	log.Infof("[Telegram] Authorized as %s", res.Result.Username)
	return &Bot{api: api, chatID: chatID}, nil
}

// SendText posts text to the configured chat
func (b *Bot) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := b.api.SendMessage(text, b.chatID, nil)
	if err != nil {
		return fmt.Errorf("unable to send telegram message: %w", err)
	}
	if !res.Ok {
		return fmt.Errorf("telegram refused message: %s", res.Description)
	}
	return nil
}
