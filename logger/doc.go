// Package logger provides structured logging for apikit using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields. There is no process-wide
// logger: every consumer receives its *Logger explicitly.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "apicall").WithComponent("httpclient")
//	log.Info("request sent", logger.Fields("method", "GET", "status", 200))
package logger
