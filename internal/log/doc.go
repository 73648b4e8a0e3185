// Package log provides slog logger construction with an attribute
// handler that masks forum credentials before they reach any sink.
package log
