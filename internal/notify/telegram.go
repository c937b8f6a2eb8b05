// Package notify pushes operator notifications to a Telegram channel. The
// storefront has no admin inbox; new orders land in the operators' group
// chat instead.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
)

// Config defines the Telegram notification settings.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// Telegram sends messages to one fixed chat. A nil *Telegram is a disabled
// notifier: every method is a no-op.
type Telegram struct {
	bot  *telebot.Bot
	chat telebot.ChatID
	log  *slog.Logger
}

// NewTelegram constructs the notifier. When the feature is disabled or no
// token is configured it returns (nil, nil) and the caller runs without
// notifications.
func NewTelegram(cfg Config, log *slog.Logger) (*Telegram, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return nil, nil
	}

	if log == nil {
		log = slog.Default()
	}

	// Send-only: the bot never polls for updates, so no poller is set.
	bot, err := telebot.NewBot(telebot.Settings{Token: cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("initialize telegram notifier: %w", err)
	}

	return &Telegram{bot: bot, chat: telebot.ChatID(cfg.ChatID), log: log}, nil
}

// Send delivers one message to the operator chat, retrying transient
// failures.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t == nil || t.bot == nil {
		return nil
	}

	err := apperrors.WithRetry(ctx, func() error {
		if _, sendErr := t.bot.Send(t.chat, text, telebot.ModeMarkdown); sendErr != nil {
			return apperrors.NewExternalAPIError("telegram", sendErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}

	return nil
}

// AnnounceOrder sends the new-order notification.
func (t *Telegram) AnnounceOrder(ctx context.Context, order domain.Order, productName string) error {
	return t.Send(ctx, FormatOrderMessage(order, productName))
}

// HealthCheck reports whether the bot session is initialized.
func (t *Telegram) HealthCheck(ctx context.Context) error {
	if t == nil || t.bot == nil || t.bot.Me == nil {
		return fmt.Errorf("telegram notifier is not initialized")
	}
	return nil
}

// FormatOrderMessage renders the operator notification for a new order.
func FormatOrderMessage(order domain.Order, productName string) string {
	msg := fmt.Sprintf(
		"*Pesanan baru!*\nProduk: %s\nJumlah: %d\nTotal: Rp%d\nOrder ID: `%s`",
		productName, order.Quantity, order.FinalPrice, order.ID,
	)
	if order.Note != "" {
		msg += "\nCatatan: " + order.Note
	}

	return msg
}
