package telegram

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"

	"github.com/movielex/movielex-backend/pkg/logger"
)

// Bot wraps the telegram connection so the rest of the transport never
// touches the library's client directly.
type Bot struct {
	bot  *tgbot.Bot
	logg *logger.Logger
}

// NewBot creates the telegram bot wrapper.
func NewBot(token string, logg *logger.Logger, opts ...tgbot.Option) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	bot, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Bot{bot: bot, logg: logg}, nil
}

// Raw returns the underlying client for handler registration and sends.
func (b *Bot) Raw() *tgbot.Bot {
	return b.bot
}

// Start runs the long-poll loop until the context is canceled.
func (b *Bot) Start(ctx context.Context) {
	b.logg.Info(ctx, "telegram bot starting")
	b.bot.Start(ctx)
	b.logg.Info(ctx, "telegram bot stopped")
}
