package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"smarttracing/internal/events"
	"smarttracing/internal/graph"
	"smarttracing/internal/graph/memory"
	"smarttracing/internal/models"
	"smarttracing/internal/organizations/service"
	"smarttracing/internal/organizations/store"
	"smarttracing/internal/organizations/store/orphans"
	"smarttracing/internal/platform/metrics"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

// flakyStore is the real DAO with the saga's second and compensating steps
// made to fail on demand.
type flakyStore struct {
	*store.DAO
	siteErr   error
	deleteErr error
	// cancelOnSite ends the caller's context while the site is written.
	cancelOnSite context.CancelFunc
}

func (f *flakyStore) CreateSite(ctx context.Context, orgID id.OrganizationID, p store.SiteParams) (id.SiteID, error) {
	if f.cancelOnSite != nil {
		f.cancelOnSite()
		return "", ctx.Err()
	}
	if f.siteErr != nil {
		return "", f.siteErr
	}
	return f.DAO.CreateSite(ctx, orgID, p)
}

func (f *flakyStore) MarkOrganizationDeleted(ctx context.Context, orgID id.OrganizationID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DAO.MarkOrganizationDeleted(ctx, orgID)
}

// contextLedger fails writes on a done context, as the redis ledger does.
type contextLedger struct {
	orphans.Ledger
}

func (l contextLedger) Record(ctx context.Context, entry orphans.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.Ledger.Record(ctx, entry)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	engine    *memory.Engine
	store     *flakyStore
	ledger    *orphans.InMemory
	published *events.Recorder
	metrics   *metrics.Metrics
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.engine = memory.New()
	client, err := graph.NewClient(s.engine)
	s.Require().NoError(err)
	s.store = &flakyStore{DAO: store.New(client,
		store.WithIDGenerator(testutil.SequentialIDs()),
		store.WithClock(testutil.FixedClock(fixedNow)),
	)}
	s.ledger = orphans.NewInMemory()
	s.published = events.NewRecorder()
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func (s *ServiceSuite) service(policy service.Policy) *service.Service {
	return service.New(s.store,
		service.WithPolicy(policy),
		service.WithLedger(s.ledger),
		service.WithPublisher(s.published),
		service.WithClock(testutil.FixedClock(fixedNow)),
		service.WithMetrics(s.metrics),
	)
}

func onboardParams() service.OnboardParams {
	return service.OnboardParams{
		Organization: store.OrganizationParams{
			Name:                 "Acme",
			Phone:                "+12225551234",
			Email:                "a@x.io",
			ContactName:          "Bob",
			HasTestingFacilities: true,
		},
		SiteCategory:    "HEALTHCARE",
		SiteSubcategory: "CLINIC",
	}
}

func (s *ServiceSuite) TestOnboard() {
	s.Run("creates the organization and its default site", func() {
		svc := s.service(service.CompensateOnFailure)

		res, err := svc.Onboard(s.ctx, onboardParams())
		s.Require().NoError(err)
		s.Equal(service.OutcomeOnboarded, res.Outcome)
		s.NotEmpty(res.DefaultSite)

		sites, err := s.store.GetSites(s.ctx, res.Organization.ID)
		s.Require().NoError(err)
		s.Equal([]models.SiteSummary{{ID: res.DefaultSite, Name: models.DefaultSiteName}}, sites)

		site, ok, err := s.store.GetSite(s.ctx, res.DefaultSite)
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal("HEALTHCARE", site.Category)
		s.Equal("CLINIC", site.Subcategory)
		s.True(site.Testing)

		onboarded := s.published.OfType(events.OrganizationOnboarded)
		s.Require().Len(onboarded, 1)
		s.Equal(res.Organization.ID, onboarded[0].OrganizationID)
		s.Equal(res.DefaultSite, onboarded[0].SiteID)
		s.Equal(fixedNow, onboarded[0].Timestamp)
	})

	s.Run("invalid phone writes nothing", func() {
		params := onboardParams()
		params.Organization.Phone = "555-1234"
		before := s.engine.VertexCount(store.LabelOrganization)

		_, err := s.service(service.CompensateOnFailure).Onboard(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPhoneNumber))
		s.Equal(before, s.engine.VertexCount(store.LabelOrganization))
	})
}

func (s *ServiceSuite) TestOnboardCompensatesOnSiteFailure() {
	s.store.siteErr = dErrors.New(dErrors.CodeEntityCreation, "failed to create site")
	svc := s.service(service.CompensateOnFailure)

	res, err := svc.Onboard(s.ctx, onboardParams())
	s.True(dErrors.HasCode(err, dErrors.CodeEntityCreation))
	s.Equal(service.OutcomeCompensated, res.Outcome)
	s.Require().NotEmpty(res.Organization.ID)

	_, ok, err := s.store.GetOrganization(s.ctx, res.Organization.ID)
	s.Require().NoError(err)
	s.False(ok, "compensated organization is soft-deleted")
	s.Equal(1, s.engine.VertexCount(store.LabelOrganization), "the vertex itself remains")

	entries, err := s.ledger.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Len(s.published.OfType(events.OnboardingCompensated), 1)
	s.Equal(0.0, promtestutil.ToFloat64(s.metrics.OrphansRecorded))
}

func (s *ServiceSuite) TestOnboardRecoversAfterCallerContextEnds() {
	s.Run("compensation still soft-deletes the organization", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		s.store.cancelOnSite = cancel
		defer func() { s.store.cancelOnSite = nil }()

		res, err := s.service(service.CompensateOnFailure).Onboard(ctx, onboardParams())
		s.ErrorIs(err, context.Canceled)
		s.Equal(service.OutcomeCompensated, res.Outcome)

		_, ok, err := s.store.GetOrganization(s.ctx, res.Organization.ID)
		s.Require().NoError(err)
		s.False(ok, "organization is not left live")
	})

	s.Run("orphan is still recorded", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		s.store.cancelOnSite = cancel
		defer func() { s.store.cancelOnSite = nil }()
		svc := service.New(s.store,
			service.WithPolicy(service.RecordOrphan),
			service.WithLedger(contextLedger{Ledger: s.ledger}),
			service.WithPublisher(s.published),
			service.WithClock(testutil.FixedClock(fixedNow)),
			service.WithRecoveryTimeout(time.Second),
		)

		res, err := svc.Onboard(ctx, onboardParams())
		s.ErrorIs(err, context.Canceled)
		s.Equal(service.OutcomeOrphaned, res.Outcome)

		entries, err := s.ledger.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(res.Organization.ID, entries[0].OrganizationID)
	})
}

func (s *ServiceSuite) TestOnboardRecordsOrphanWhenCompensationFails() {
	s.store.siteErr = dErrors.New(dErrors.CodeEntityCreation, "failed to create site")
	s.store.deleteErr = dErrors.New(dErrors.CodeUpdateFailed, "failed to delete organization")
	svc := s.service(service.CompensateOnFailure)

	res, err := svc.Onboard(s.ctx, onboardParams())
	s.True(dErrors.HasCode(err, dErrors.CodeEntityCreation))
	s.True(dErrors.HasCode(err, dErrors.CodeUpdateFailed))
	s.Equal(service.OutcomeOrphaned, res.Outcome)

	entries, err := s.ledger.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(res.Organization.ID, entries[0].OrganizationID)
	s.Contains(entries[0].Reason, "compensation failed")
	s.Equal(fixedNow, entries[0].RecordedAt)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.OrphansRecorded))
}

func (s *ServiceSuite) TestRecordOrphanPolicyThenReconcile() {
	s.store.siteErr = dErrors.New(dErrors.CodeEntityCreation, "failed to create site")
	svc := s.service(service.RecordOrphan)

	res, err := svc.Onboard(s.ctx, onboardParams())
	s.Require().Error(err)
	s.Equal(service.OutcomeOrphaned, res.Outcome)

	org, ok, err := s.store.GetOrganization(s.ctx, res.Organization.ID)
	s.Require().NoError(err)
	s.Require().True(ok, "organization is kept")
	s.Equal(res.Organization, org)
	s.Len(s.published.OfType(events.OnboardingOrphaned), 1)

	s.store.siteErr = nil
	report, err := svc.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(service.ReconcileReport{Examined: 1, Repaired: 1}, report)

	sites, err := s.store.GetSites(s.ctx, res.Organization.ID)
	s.Require().NoError(err)
	s.Require().Len(sites, 1)
	s.Equal(models.DefaultSiteName, sites[0].Name)

	site, _, err := s.store.GetSite(s.ctx, sites[0].ID)
	s.Require().NoError(err)
	s.Equal("HEALTHCARE", site.Category)

	entries, err := s.ledger.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Len(s.published.OfType(events.OrphanReconciled), 1)

	report, err = svc.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(service.ReconcileReport{}, report, "second pass has nothing to do")
}

func (s *ServiceSuite) TestReconcile() {
	svc := s.service(service.RecordOrphan)

	s.Run("resolves entries whose organization is gone", func() {
		org, err := s.store.CreateOrganization(s.ctx, onboardParams().Organization)
		s.Require().NoError(err)
		s.Require().NoError(s.store.MarkOrganizationDeleted(s.ctx, org.ID))
		s.Require().NoError(s.ledger.Record(s.ctx, orphans.Entry{OrganizationID: org.ID, RecordedAt: fixedNow}))

		report, err := svc.Reconcile(s.ctx)
		s.Require().NoError(err)
		s.Equal(service.ReconcileReport{Examined: 1, Resolved: 1}, report)
		s.Equal(0, s.engine.VertexCount(store.LabelSite))
	})

	s.Run("does not duplicate an existing default site", func() {
		res, err := svc.Onboard(s.ctx, onboardParams())
		s.Require().NoError(err)
		s.Require().NoError(s.ledger.Record(s.ctx, orphans.Entry{OrganizationID: res.Organization.ID, RecordedAt: fixedNow}))
		sitesBefore := s.engine.VertexCount(store.LabelSite)

		report, err := svc.Reconcile(s.ctx)
		s.Require().NoError(err)
		s.Equal(service.ReconcileReport{Examined: 1, Resolved: 1}, report)
		s.Equal(sitesBefore, s.engine.VertexCount(store.LabelSite))
	})

	s.Run("failed repairs stay in the ledger", func() {
		org, err := s.store.CreateOrganization(s.ctx, onboardParams().Organization)
		s.Require().NoError(err)
		s.Require().NoError(s.ledger.Record(s.ctx, orphans.Entry{OrganizationID: org.ID, RecordedAt: fixedNow}))
		s.store.siteErr = errors.New("engine down")
		defer func() { s.store.siteErr = nil }()

		report, err := svc.Reconcile(s.ctx)
		s.Require().NoError(err)
		s.Equal(service.ReconcileReport{Examined: 1, Failed: 1}, report)

		entries, err := s.ledger.List(s.ctx)
		s.Require().NoError(err)
		s.Len(entries, 1)
	})
}

func (s *ServiceSuite) TestDetails() {
	svc := s.service(service.CompensateOnFailure)
	res, err := svc.Onboard(s.ctx, onboardParams())
	s.Require().NoError(err)
	_, err = s.store.CreateSite(s.ctx, res.Organization.ID, store.SiteParams{Name: "Annex"})
	s.Require().NoError(err)

	details, ok, err := svc.Details(s.ctx, res.Organization.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(res.Organization, details.Organization)
	s.Len(details.Sites, 2)

	_, ok, err = svc.Details(s.ctx, id.OrganizationID("00000000-0000-4000-8000-999999999999"))
	s.Require().NoError(err)
	s.False(ok)
}

func TestParsePolicy(t *testing.T) {
	for input, want := range map[string]service.Policy{
		"":              service.CompensateOnFailure,
		"compensate":    service.CompensateOnFailure,
		"RECORD_ORPHAN": service.RecordOrphan,
	} {
		got, err := service.ParsePolicy(input)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := service.ParsePolicy("retry"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}
