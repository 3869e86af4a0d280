package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
)

type sinkLine struct {
	msg   string
	level LogLevel
}

func collectSink(lines *[]sinkLine) LogSink {
	return LogSinkFunc(func(msg string, level LogLevel) {
		*lines = append(*lines, sinkLine{msg, level})
	})
}

func loggedRequest(t *testing.T) *http.Request {
	t.Helper()
	d := Post(mustURL(t, "https://api.example.com"), "items", &payload{Name: "a"},
		WithHeader("X-Trace", "t1")).Descriptor()
	req, err := d.HTTPRequest(context.Background())
	if err != nil {
		t.Fatalf("HTTPRequest: %v", err)
	}
	return req
}

func TestLoggingAdapter_Levels(t *testing.T) {
	tests := []struct {
		level     LogLevel
		wantLines int
	}{
		{LogNone, 0},
		// request line, response line, error line
		{LogInfo, 3},
		// plus body label, body, two headers, response body label and body
		{LogDebug, 9},
	}

	for _, tc := range tests {
		t.Run(tc.level.String(), func(t *testing.T) {
			var lines []sinkLine
			a := NewLoggingAdapter(tc.level, collectSink(&lines))
			req := loggedRequest(t)

			a.BeforeSend(req)
			a.OnResponse(&Response{StatusCode: 404, Body: []byte(`{"e":1}`), Request: req})
			a.OnError(req, NewRequestError(404, nil))

			if len(lines) != tc.wantLines {
				t.Fatalf("got %d lines, want %d: %+v", len(lines), tc.wantLines, lines)
			}
			for _, l := range lines {
				if l.level > tc.level {
					t.Errorf("line %q written at %s above %s", l.msg, l.level, tc.level)
				}
			}
		})
	}
}

func TestLoggingAdapter_Messages(t *testing.T) {
	var lines []sinkLine
	a := NewLoggingAdapter(LogDebug, collectSink(&lines))
	req := loggedRequest(t)

	a.BeforeSend(req)
	a.OnResponse(&Response{StatusCode: 200, Request: req})

	var all []string
	for _, l := range lines {
		all = append(all, l.msg)
	}
	joined := strings.Join(all, "\n")
	for _, want := range []string{
		"POST https://api.example.com/items",
		`{"name":"a","count":0}`,
		"Header field: X-Trace: t1",
		"Received HTTP 200 from https://api.example.com/items",
		"<empty>",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}

	body, _ := req.GetBody()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(body)
	if buf.String() != `{"name":"a","count":0}` {
		t.Errorf("logging must not consume the request body, got %q", buf.String())
	}
}

func TestLoggingAdapter_NilSink(t *testing.T) {
	a := NewLoggingAdapter(LogDebug, nil)
	a.BeforeSend(loggedRequest(t))
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"": LogNone, "none": LogNone, "info": LogInfo, "debug": LogDebug} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
