package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/kbukum/apikit/logger"
)

// LogLevel is the verbosity of a LoggingAdapter. Levels are ordered:
// a message is written when its level is at or below the adapter's level.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogInfo
	LogDebug
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses "none", "info" or "debug".
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "none", "":
		return LogNone, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	default:
		return LogNone, fmt.Errorf("httpclient: unknown log level %q", s)
	}
}

// LogSink receives text messages from a LoggingAdapter.
type LogSink interface {
	Write(msg string, level LogLevel)
}

// LogSinkFunc adapts a function to LogSink.
type LogSinkFunc func(msg string, level LogLevel)

func (f LogSinkFunc) Write(msg string, level LogLevel) { f(msg, level) }

type loggerSink struct {
	log *logger.Logger
}

// LoggerSink writes adapter messages to l, info messages at info level and
// debug messages at debug level.
func LoggerSink(l *logger.Logger) LogSink {
	return loggerSink{log: l}
}

func (s loggerSink) Write(msg string, level LogLevel) {
	switch level {
	case LogInfo:
		s.log.Info(msg)
	case LogDebug:
		s.log.Debug(msg)
	}
}

// LoggingAdapter writes a text trace of every call: method and URL before
// send, status on response and the error on failure at info level; headers
// and bodies at debug level.
type LoggingAdapter struct {
	NopAdapter
	level LogLevel
	sink  LogSink
}

// NewLoggingAdapter creates a LoggingAdapter writing to sink.
func NewLoggingAdapter(level LogLevel, sink LogSink) *LoggingAdapter {
	return &LoggingAdapter{level: level, sink: sink}
}

func (a *LoggingAdapter) write(level LogLevel, format string, args ...any) {
	if a.sink == nil || level == LogNone || level > a.level {
		return
	}
	a.sink.Write(fmt.Sprintf(format, args...), level)
}

func (a *LoggingAdapter) writeBody(body []byte) {
	if len(body) == 0 {
		a.write(LogDebug, "<empty>")
		return
	}
	a.write(LogDebug, "%s", body)
}

// BeforeSend logs the outgoing request.
func (a *LoggingAdapter) BeforeSend(req *http.Request) {
	if req.URL == nil {
		return
	}
	a.write(LogInfo, "%s %s", req.Method, req.URL.String())
	if a.level < LogDebug {
		return
	}
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			a.write(LogDebug, "Request body:")
			a.writeBody(body)
		}
	}
	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a.write(LogDebug, "Header field: %s: %s", k, req.Header.Get(k))
	}
}

// OnResponse logs the status and body.
func (a *LoggingAdapter) OnResponse(resp *Response) {
	url := "<?>"
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	a.write(LogInfo, "Received HTTP %d from %s", resp.StatusCode, url)
	a.write(LogDebug, "Body:")
	a.writeBody(resp.Body)
}

// OnError logs the classified error.
func (a *LoggingAdapter) OnError(_ *http.Request, err *Error) {
	a.write(LogInfo, "ERROR: %v", err)
}
