package httpclienttest

import (
	"net/http"
	"strings"
	"sync"

	"github.com/kbukum/apikit/httpclient"
)

// Hook names recorded by Recorder.
const (
	HookBeforeSend = "before_send"
	HookOnResponse = "on_response"
	HookOnSuccess  = "on_success"
	HookOnError    = "on_error"
)

// Event is one recorded hook invocation.
type Event struct {
	// Name is the recorder's name, Hook the invoked hook.
	Name string
	Hook string
	// StatusCode is set for on_response events.
	StatusCode int
	// Err is set for on_error events.
	Err *httpclient.Error
}

// String formats the event as "name.hook".
func (e Event) String() string {
	return e.Name + "." + e.Hook
}

// Log collects events from several recorders in a single order.
type Log struct {
	mu     sync.Mutex
	events []Event
}

func (l *Log) add(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Events returns the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Sequence returns the events as "name.hook" strings joined by spaces.
func (l *Log) Sequence() string {
	events := l.Events()
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Count returns how many times hook was recorded.
func (l *Log) Count(hook string) int {
	n := 0
	for _, e := range l.Events() {
		if e.Hook == hook {
			n++
		}
	}
	return n
}

// Recorder is an httpclient.Adapter that appends every hook invocation to
// a Log. Mutate, when set, runs in BeforeSend after recording.
type Recorder struct {
	Name   string
	Log    *Log
	Mutate func(req *http.Request)
}

// NewRecorder returns a recorder named name writing to log.
func NewRecorder(name string, log *Log) *Recorder {
	return &Recorder{Name: name, Log: log}
}

func (r *Recorder) BeforeSend(req *http.Request) {
	r.Log.add(Event{Name: r.Name, Hook: HookBeforeSend})
	if r.Mutate != nil {
		r.Mutate(req)
	}
}

func (r *Recorder) OnResponse(resp *httpclient.Response) {
	r.Log.add(Event{Name: r.Name, Hook: HookOnResponse, StatusCode: resp.StatusCode})
}

func (r *Recorder) OnSuccess(*http.Request) {
	r.Log.add(Event{Name: r.Name, Hook: HookOnSuccess})
}

func (r *Recorder) OnError(_ *http.Request, err *httpclient.Error) {
	r.Log.add(Event{Name: r.Name, Hook: HookOnError, Err: err})
}
