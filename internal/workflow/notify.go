package workflow

import (
	"errors"
	"log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notification is a message surfaced to the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
	Link    string
	Err     error
}

// Notifier renders notifications. Every workflow error ends up here.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to the default logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	args := []any{"title", n.Title}
	if n.Message != "" {
		args = append(args, "message", n.Message)
	}
	if n.Link != "" {
		args = append(args, "link", n.Link)
	}
	switch n.Level {
	case LevelError:
		slog.Error("notification", args...)
	case LevelWarn:
		slog.Warn("notification", args...)
	default:
		slog.Info("notification", args...)
	}
}

const (
	depositSuccessTitle   = "Deposit Successful"
	depositSuccessMessage = "Refresh after 5 minutes to see updated amounts"
	associationSuccess    = "Address association completed successfully"
	retryMessage          = "Please try again"
)

// Explorers builds transaction links for success notifications.
type Explorers struct {
	EVM    string
	Solana string
}

var DefaultExplorers = Explorers{
	EVM:    "https://etherscan.io/tx/",
	Solana: "https://explorer.solana.com/tx/",
}

func (e Explorers) Link(family domain.ChainFamily, key string) string {
	base := e.EVM
	if family == domain.ChainFamilySolana {
		base = e.Solana
	}
	if base == "" || key == "" {
		return ""
	}
	return base + key
}

// errorNotification converts a workflow error into the message shown to the user.
func errorNotification(err error) Notification {
	n := Notification{Level: LevelError, Err: err}
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		n.Title = "You must set the amount to deposit"
	case errors.Is(err, domain.ErrUserCancelled):
		n.Level = LevelWarn
		n.Title = "Request rejected in wallet"
	default:
		n.Title = err.Error()
		if domain.IsRecoverable(err) {
			n.Message = retryMessage
		}
	}
	return n
}
