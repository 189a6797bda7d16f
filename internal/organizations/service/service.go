// Package service composes the organization DAO into the operations that span
// more than one graph submission: onboarding an organization together with
// its default site, repairing onboardings that stopped halfway, and reading
// an organization with its sites.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"smarttracing/internal/events"
	"smarttracing/internal/models"
	"smarttracing/internal/organizations/store"
	"smarttracing/internal/organizations/store/orphans"
	"smarttracing/internal/platform/metrics"
	id "smarttracing/pkg/domain"
)

type OrganizationStore interface {
	CreateOrganization(ctx context.Context, p store.OrganizationParams) (models.Organization, error)
	GetOrganization(ctx context.Context, orgID id.OrganizationID) (models.Organization, bool, error)
	MarkOrganizationDeleted(ctx context.Context, orgID id.OrganizationID) error
	CreateSite(ctx context.Context, orgID id.OrganizationID, p store.SiteParams) (id.SiteID, error)
	GetSites(ctx context.Context, orgID id.OrganizationID) ([]models.SiteSummary, error)
}

// Policy decides what Onboard does when the organization was written but its
// default site was not.
type Policy int

const (
	// CompensateOnFailure soft-deletes the organization. Only if that also
	// fails is the organization recorded in the orphan ledger.
	CompensateOnFailure Policy = iota
	// RecordOrphan keeps the organization and records it in the orphan ledger
	// for Reconcile to finish.
	RecordOrphan
)

func (p Policy) String() string {
	switch p {
	case RecordOrphan:
		return "record_orphan"
	default:
		return "compensate"
	}
}

// ParsePolicy accepts the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compensate":
		return CompensateOnFailure, nil
	case "record_orphan":
		return RecordOrphan, nil
	default:
		return 0, fmt.Errorf("unknown onboarding policy %q", s)
	}
}

// Outcome reports how far Onboard got.
type Outcome string

const (
	OutcomeOnboarded   Outcome = "onboarded"
	OutcomeCompensated Outcome = "compensated"
	OutcomeOrphaned    Outcome = "orphaned"
)

// DefaultRecoveryTimeout bounds compensation and orphan recording after a
// failed default site write.
const DefaultRecoveryTimeout = 10 * time.Second

type Service struct {
	orgs            OrganizationStore
	recoveryTimeout time.Duration
	ledger    orphans.Ledger
	publisher events.Publisher
	policy    Policy
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithLedger(l orphans.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecoveryTimeout sets how long Onboard may spend compensating or
// recording an orphan once the caller's context is gone.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recoveryTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. Without options it compensates on failure, keeps
// the orphan ledger in memory and logs events.
func New(orgs OrganizationStore, opts ...Option) *Service {
	s := &Service{
		orgs:            orgs,
		recoveryTimeout: DefaultRecoveryTimeout,
		ledger:          orphans.NewInMemory(),
		policy: CompensateOnFailure,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger)
	}
	return s
}

// OnboardParams describe the organization and its default site. The site is
// always named models.DefaultSiteName.
type OnboardParams struct {
	Organization    store.OrganizationParams
	SiteCategory    string
	SiteSubcategory string
}

type OnboardResult struct {
	Organization models.Organization
	DefaultSite  id.SiteID
	Outcome      Outcome
}

// Onboard creates the organization and then its default site. These are two
// graph submissions; when the second fails the configured Policy runs and the
// site error is returned together with a result whose Outcome says what was
// left behind. The organization id in that result stays usable.
//
// Recovery runs on a context detached from ctx and bounded by the recovery
// timeout, so it still happens when the caller's deadline failed the site.
func (s *Service) Onboard(ctx context.Context, p OnboardParams) (OnboardResult, error) {
	org, err := s.orgs.CreateOrganization(ctx, p.Organization)
	if err != nil {
		return OnboardResult{}, err
	}

	siteID, siteErr := s.orgs.CreateSite(ctx, org.ID, s.defaultSite(org, p.SiteCategory, p.SiteSubcategory))
	if siteErr == nil {
		s.publish(ctx, events.Event{Type: events.OrganizationOnboarded, OrganizationID: org.ID, SiteID: siteID})
		return OnboardResult{Organization: org, DefaultSite: siteID, Outcome: OutcomeOnboarded}, nil
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recoveryTimeout)
	defer cancel()
	s.logger.ErrorContext(rctx, "default site creation failed",
		"organization_id", org.ID,
		"policy", s.policy.String(),
		"error", siteErr,
	)
	entry := orphans.Entry{
		OrganizationID:  org.ID,
		SiteCategory:    p.SiteCategory,
		SiteSubcategory: p.SiteSubcategory,
	}

	if s.policy == CompensateOnFailure {
		compErr := s.orgs.MarkOrganizationDeleted(rctx, org.ID)
		if compErr == nil {
			s.publish(rctx, events.Event{Type: events.OnboardingCompensated, OrganizationID: org.ID, Reason: siteErr.Error()})
			return OnboardResult{Organization: org, Outcome: OutcomeCompensated}, siteErr
		}
		s.logger.ErrorContext(rctx, "onboarding compensation failed",
			"organization_id", org.ID,
			"error", compErr,
		)
		entry.Reason = "compensation failed: " + compErr.Error()
		if err := s.recordOrphan(rctx, entry); err != nil {
			return OnboardResult{Organization: org, Outcome: OutcomeOrphaned}, errors.Join(siteErr, compErr, err)
		}
		return OnboardResult{Organization: org, Outcome: OutcomeOrphaned}, errors.Join(siteErr, compErr)
	}

	entry.Reason = "default site failed: " + siteErr.Error()
	if err := s.recordOrphan(rctx, entry); err != nil {
		return OnboardResult{Organization: org, Outcome: OutcomeOrphaned}, errors.Join(siteErr, err)
	}
	return OnboardResult{Organization: org, Outcome: OutcomeOrphaned}, siteErr
}

func (s *Service) defaultSite(org models.Organization, category, subcategory string) store.SiteParams {
	return store.SiteParams{
		Name:        models.DefaultSiteName,
		Category:    category,
		Subcategory: subcategory,
		Testing:     org.HasTestingFacilities,
	}
}

func (s *Service) recordOrphan(ctx context.Context, entry orphans.Entry) error {
	entry.RecordedAt = s.clock().UTC()
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record orphaned organization",
			"organization_id", entry.OrganizationID,
			"error", err,
		)
		return fmt.Errorf("record orphan: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementOrphansRecorded()
	}
	s.publish(ctx, events.Event{Type: events.OnboardingOrphaned, OrganizationID: entry.OrganizationID, Reason: entry.Reason})
	return nil
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Examined int
	// Repaired entries got their default site created.
	Repaired int
	// Resolved entries needed no repair: the organization is gone or already
	// has a default site.
	Resolved int
	Failed   int
}

// Reconcile walks the orphan ledger. For every organization that is still
// live and has no default site it creates one, then resolves the entry.
// Entries that fail stay in the ledger for the next pass.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list orphans: %w", err)
	}

	var report ReconcileReport
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Examined++
		repaired, err := s.reconcileOne(ctx, entry)
		switch {
		case err != nil:
			report.Failed++
			s.logger.ErrorContext(ctx, "failed to reconcile orphaned organization",
				"organization_id", entry.OrganizationID,
				"error", err,
			)
		case repaired:
			report.Repaired++
		default:
			report.Resolved++
		}
	}
	if report.Examined > 0 {
		s.logger.InfoContext(ctx, "reconciliation pass finished",
			"examined", report.Examined,
			"repaired", report.Repaired,
			"resolved", report.Resolved,
			"failed", report.Failed,
		)
	}
	return report, nil
}

func (s *Service) reconcileOne(ctx context.Context, entry orphans.Entry) (bool, error) {
	org, ok, err := s.orgs.GetOrganization(ctx, entry.OrganizationID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, s.ledger.Resolve(ctx, entry.OrganizationID)
	}

	sites, err := s.orgs.GetSites(ctx, org.ID)
	if err != nil {
		return false, err
	}
	for _, site := range sites {
		if site.Name == models.DefaultSiteName {
			return false, s.ledger.Resolve(ctx, org.ID)
		}
	}

	siteID, err := s.orgs.CreateSite(ctx, org.ID, s.defaultSite(org, entry.SiteCategory, entry.SiteSubcategory))
	if err != nil {
		return false, err
	}
	if err := s.ledger.Resolve(ctx, org.ID); err != nil {
		return false, err
	}
	s.publish(ctx, events.Event{Type: events.OrphanReconciled, OrganizationID: org.ID, SiteID: siteID})
	return true, nil
}

// Details is an organization together with the sites it owns.
type Details struct {
	Organization models.Organization
	Sites        []models.SiteSummary
}

// Details reads the organization and its sites concurrently. ok is false when
// the organization does not exist or was soft-deleted.
func (s *Service) Details(ctx context.Context, orgID id.OrganizationID) (Details, bool, error) {
	var (
		org   models.Organization
		found bool
		sites []models.SiteSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		org, found, err = s.orgs.GetOrganization(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		sites, err = s.orgs.GetSites(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Details{}, false, err
	}
	if !found {
		return Details{}, false, nil
	}
	return Details{Organization: org, Sites: sites}, true, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish domain event",
			"type", string(event.Type),
			"organization_id", event.OrganizationID,
			"error", err,
		)
	}
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)
			}
		}
	}
}
