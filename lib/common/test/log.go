// Package test holds helpers shared by the tests of several packages.
package test

import (
	"os"

	logging "github.com/inconshreveable/log15"
)

// LogHandler is selected by POLLWATCH_LOG_HANDLER: "null" (the default)
// discards everything, "stdout" prints with the call stack.
func LogHandler() logging.Handler {
	handlers := map[string]func() logging.Handler{
		"null": func() logging.Handler {
			return logging.DiscardHandler()
		},
		"stdout": func() logging.Handler {
			return logging.CallerStackHandler("%+v", logging.StdoutHandler)
		},
	}

	handler := handlers["null"]
	if h, ok := handlers[os.Getenv("POLLWATCH_LOG_HANDLER")]; ok {
		handler = h
	}

	return handler()
}

// LogLevel is POLLWATCH_LOG_LEVEL, or debug.
func LogLevel() logging.Lvl {
	if lvl, err := logging.LvlFromString(os.Getenv("POLLWATCH_LOG_LEVEL")); err == nil {
		return lvl
	}
	return logging.LvlDebug
}
