// Package logging constructs the process-wide zap logger and its
// component-scoped children, the way deflix-stremio wires zap through its
// handlers: one base logger, a Named() child per subsystem, structured
// fields instead of formatted strings.
package logging

import "go.uber.org/zap"

// New builds a production zap logger. In non-production deployments callers
// may swap in zap.NewDevelopment() instead; the rest of the codebase only
// depends on *zap.Logger, never on the build function.
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}

// Component returns a child logger scoped to name, so every log line from
// the gateway, resolver, coordinator, adapters and scrapers is traceable to
// its subsystem without repeating the field by hand.
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.Named(name)
}
