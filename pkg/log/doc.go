/*
Package log provides structured logging for knockd using zerolog.

The package wraps zerolog behind a global logger initialized once via
log.Init, with component-scoped child loggers and helpers for the common
severities. Console output is the default; --log-json switches the daemon to
JSON lines.

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("detector")
	logger.Info().Str("client_ip", ip).Msg("knock sequence matched")
*/
package log
