// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate localizes the diagnostic text of the bearcore packages.
//
// Console output produced by the simulated firmware is never translated; it is
// the byte stream a UART would carry. Only Go-level error strings go through here.
package translate

import (
	"sync"

	"github.com/jeandeaual/go-locale"
	"github.com/sirupsen/logrus"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printerOnce sync.Once
	printerMu   sync.Mutex
	printer     *message.Printer
)

func defaultPrinter() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		logrus.WithError(err).Debug("bearcore: locale")
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}

func current() *message.Printer {
	printerOnce.Do(func() {
		printerMu.Lock()
		if printer == nil {
			printer = defaultPrinter()
		}
		printerMu.Unlock()
	})

	printerMu.Lock()
	defer printerMu.Unlock()
	return printer
}

// SetLanguage overrides the host locale, e.g. from a command line flag.
func SetLanguage(tag language.Tag) {
	printerOnce.Do(func() {})

	printerMu.Lock()
	printer = message.NewPrinter(tag)
	printerMu.Unlock()
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return current().Sprintf(key, args...)
}
