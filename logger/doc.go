// Package logger provides structured logging on top of zerolog.
//
// It supports JSON and console output, level configuration, and named
// component loggers carrying structured fields such as the provider id,
// the request id and the fallback tier.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("gemini")
//	log.Info("completion finished", logger.Fields(logger.FieldRequestID, id))
package logger
