package query

import "go.uber.org/zap"

// Notifier receives user-visible operation outcomes. The CLI prints them,
// the TUI shows them in the status bar, tests capture them.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier routes notifications to the global logger. Default when no
// interactive surface is attached.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) { zap.L().Info(msg) }
func (LogNotifier) Error(msg string)   { zap.L().Error(msg) }

// FuncNotifier adapts two callbacks into a Notifier.
type FuncNotifier struct {
	OnSuccess func(string)
	OnError   func(string)
}

func (n FuncNotifier) Success(msg string) {
	if n.OnSuccess != nil {
		n.OnSuccess(msg)
	}
}

func (n FuncNotifier) Error(msg string) {
	if n.OnError != nil {
		n.OnError(msg)
	}
}
