package notify

import (
	"context"
	"log/slog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notifier: короткие сообщения пользователю (аналог тостов).
type Notifier interface {
	Notify(ctx context.Context, level Level, text string)
}

type Log struct{ log *slog.Logger }

func NewLog(log *slog.Logger) *Log { return &Log{log: log} }

func (n *Log) Notify(ctx context.Context, level Level, text string) {
	switch level {
	case LevelError:
		n.log.ErrorContext(ctx, text, "notice", string(level))
	case LevelWarning:
		n.log.WarnContext(ctx, text, "notice", string(level))
	default:
		n.log.InfoContext(ctx, text, "notice", string(level))
	}
}

// Multi рассылает уведомление во все каналы.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, level Level, text string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, level, text)
		}
	}
}

// Recorder запоминает уведомления; нужен в тестах и для CLI-отчёта.
type Recorder struct {
	Notices []Notice
}

type Notice struct {
	Level Level
	Text  string
}

func (r *Recorder) Notify(_ context.Context, level Level, text string) {
	r.Notices = append(r.Notices, Notice{Level: level, Text: text})
}
