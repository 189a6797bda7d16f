// Package events publishes domain events about organization onboarding.
//
// Events are notifications, not the source of truth: the graph is. Publishers
// therefore report failures to the caller, and the onboarding service logs
// and counts them without failing the operation that produced the event.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "smarttracing/pkg/domain"
)

// Type names what happened.
type Type string

const (
	// OrganizationOnboarded: the organization and its default site exist.
	OrganizationOnboarded Type = "organization_onboarded"
	// OnboardingCompensated: the default site failed and the organization was
	// soft-deleted.
	OnboardingCompensated Type = "onboarding_compensated"
	// OnboardingOrphaned: the organization exists without a default site and
	// was recorded for reconciliation.
	OnboardingOrphaned Type = "onboarding_orphaned"
	// OrphanReconciled: reconciliation created the missing default site.
	OrphanReconciled Type = "orphan_reconciled"
)

type Event struct {
	Type           Type              `json:"type"`
	OrganizationID id.OrganizationID `json:"organization_id"`
	SiteID         id.SiteID         `json:"site_id,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Publisher delivers events to some sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Recorder keeps published events in memory. It backs tests and the
// memory-only development setup.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Publisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the published events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Close() error {
	return nil
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

var _ Publisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"type", string(event.Type),
		"organization_id", event.OrganizationID,
		"site_id", event.SiteID,
		"reason", event.Reason,
		"timestamp", event.Timestamp,
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
