package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender: часть tgbotapi.BotAPI, которая нужна для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram шлёт уведомления в админ-чат.
type Telegram struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewTelegram(api Sender, chatID int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, log: log}
}

// NewTelegramFromToken создаёт клиента бота; ошибка, если токен не принят.
func NewTelegramFromToken(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegram(api, chatID, log), nil
}

func (n *Telegram) Notify(ctx context.Context, level Level, text string) {
	// успехи в чат не шлём
	if n.chatID == 0 || level == LevelSuccess {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, badge(level)+" "+text)
	if _, err := n.api.Send(msg); err != nil {
		n.log.ErrorContext(ctx, "telegram send failed", "err", err)
	}
}

func badge(l Level) string {
	switch l {
	case LevelError:
		return "⛔"
	case LevelWarning:
		return "⚠️"
	default:
		return "✅"
	}
}
