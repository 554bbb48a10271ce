// Package status carries single-line progress narration from the dispatch
// layer to whatever shell hosts it. Holders keep a Sink by reference with a
// no-op default, so publishing never needs a nil check.
package status

import "log/slog"

// Sink accepts single-line progress strings. Implementations must be safe
// for concurrent use; dispatches overlap.
type Sink interface {
	Publish(line string)
}

// Func adapts a function to a Sink.
type Func func(line string)

func (f Func) Publish(line string) { f(line) }

type nop struct{}

func (nop) Publish(string) {}

// Nop returns the default do-nothing sink.
func Nop() Sink { return nop{} }

// NewLogger returns a sink that writes narration to the given logger at
// info level, for headless runs with no UI attached.
func NewLogger(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(line string) {
		logger.Info(line)
	})
}
