package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AppLogger derives a logger tagged with app from the global logger. The
// global logger is configured by the logging package.
func AppLogger(app string) zerolog.Logger {
	return log.Logger.With().Str("app", app).Logger()
}
