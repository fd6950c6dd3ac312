package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryRecorder collects the events a hub would send to Sentry.
type SentryRecorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *SentryRecorder) Flush(time.Duration) bool                  { return true }
func (r *SentryRecorder) FlushWithContext(ctx context.Context) bool { return true }
func (r *SentryRecorder) Configure(sentry.ClientOptions)            {}
func (r *SentryRecorder) Close()                                    {}

func (r *SentryRecorder) SendEvent(event *sentry.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the events captured so far.
func (r *SentryRecorder) Events() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}

// NewSentryHub returns a hub that records into a SentryRecorder instead of sending events.
func NewSentryHub() (*sentry.Hub, *SentryRecorder) {
	rec := &SentryRecorder{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Transport:        rec,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		panic(err)
	}
	return sentry.NewHub(client, sentry.NewScope()), rec
}

// SentryContext returns ctx bound to a recording hub.
func SentryContext(ctx context.Context) (context.Context, *SentryRecorder) {
	hub, rec := NewSentryHub()
	return sentry.SetHubOnContext(ctx, hub), rec
}
