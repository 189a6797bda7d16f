// Package store is the data access layer for organizations and the sites and
// scannables they own.
//
// Every method validates its input, generates ids before the first mutation
// and talks to the graph only through graph.Client, so failures reach the
// caller already translated into the domain error taxonomy.
package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"smarttracing/internal/graph"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/validation"
)

// Vertex and edge labels owned by this package.
const (
	LabelOrganization = "Organization"
	LabelSite         = "Site"
	LabelScannable    = "Scannable"
	EdgeOwns          = "OWNS"
)

// Property names.
const (
	propName                 = "name"
	propPremise              = "premise"
	propThoroughfare         = "thoroughfare"
	propLocality             = "locality"
	propAdministrativeArea   = "administrativeArea"
	propPostalCode           = "postalCode"
	propCountry              = "country"
	propContactName          = "contactName"
	propEmail                = "email"
	propPhone                = "phone"
	propVerified             = "verified"
	propHasTestingFacilities = "hasTestingFacilities"
	propMultiSite            = "multisite"
	propCreationTimestamp    = "creationTimestamp"
	propDeleted              = "deleted"
	propOrganizationID       = "organizationId"
	propCategory             = "category"
	propSubcategory          = "subcategory"
	propTesting              = "testing"
	propLatitude             = "latitude"
	propLongitude            = "longitude"
	propType                 = "type"
	propSingleUse            = "singleUse"
	propActive               = "active"
)

// DAO creates, reads and updates organizations, sites and scannables. It holds
// no mutable state and is safe for concurrent use.
type DAO struct {
	graph  *graph.Client
	newID  id.IDGenerator
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*DAO)

func WithIDGenerator(gen id.IDGenerator) Option {
	return func(d *DAO) {
		if gen != nil {
			d.newID = gen
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(d *DAO) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *DAO) {
		d.logger = logger
	}
}

func New(client *graph.Client, opts ...Option) *DAO {
	d := &DAO{
		graph:  client,
		newID:  id.NewID,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OrganizationParams are the inputs of CreateOrganization. Phone is required
// and must be internationally formatted.
type OrganizationParams struct {
	Name                 string
	Phone                string
	Email                string
	ContactName          string
	Address              models.Address
	HasTestingFacilities bool
	MultiSite            bool
}

// CreateOrganization validates the phone number, then writes the organization
// in a single mutation. The returned record is built from the inputs.
func (d *DAO) CreateOrganization(ctx context.Context, p OrganizationParams) (models.Organization, error) {
	if err := validation.ValidatePhoneNumber(p.Phone); err != nil {
		return models.Organization{}, err
	}

	orgID := id.OrganizationID(d.newID())
	now := d.clock().UTC()
	spec := graph.NewVertex(LabelOrganization, orgID.String()).
		Set(propName, p.Name).
		Set(propPremise, p.Address.Premise).
		Set(propThoroughfare, p.Address.Thoroughfare).
		Set(propLocality, p.Address.Locality).
		Set(propAdministrativeArea, p.Address.AdministrativeArea).
		Set(propPostalCode, p.Address.PostalCode).
		Set(propCountry, p.Address.Country).
		Set(propContactName, p.ContactName).
		Set(propEmail, p.Email).
		Set(propPhone, p.Phone).
		Set(propVerified, false).
		Set(propHasTestingFacilities, p.HasTestingFacilities).
		Set(propMultiSite, p.MultiSite).
		Set(propDeleted, false).
		Set(propCreationTimestamp, graph.FormatTime(now))

	if _, err := d.graph.Execute(ctx, "create organization", spec); err != nil {
		d.logger.ErrorContext(ctx, "error creating organization",
			"name", p.Name,
			"error", err,
		)
		return models.Organization{}, err
	}

	return models.Organization{
		ID:                   orgID,
		Name:                 p.Name,
		Address:              p.Address,
		ContactName:          p.ContactName,
		ContactInfo:          models.ContactInfo{Email: p.Email, Phone: p.Phone},
		HasTestingFacilities: p.HasTestingFacilities,
		MultiSite:            p.MultiSite,
		Verified:             false,
		CreatedAt:            now,
	}, nil
}

// GetOrganization returns ok == false when no live organization has orgID.
func (d *DAO) GetOrganization(ctx context.Context, orgID id.OrganizationID) (models.Organization, bool, error) {
	props, ok, err := d.graph.PropertyMapOf(ctx, "get organization", graph.VertexQuery{
		ID:    orgID.String(),
		Label: LabelOrganization,
		Has:   map[string]any{propDeleted: false},
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting organization", "organization_id", orgID, "error", err)
		return models.Organization{}, false, err
	}
	if !ok {
		return models.Organization{}, false, nil
	}
	org, err := decodeOrganization(orgID, props)
	if err != nil {
		d.logger.ErrorContext(ctx, "corrupt organization record", "organization_id", orgID, "error", err)
		return models.Organization{}, false, err
	}
	return org, true, nil
}

// SetMultiSite sets the multi-site flag. With graph.MayBeAbsent an unknown id
// is a no-op; with graph.MustExist it fails with an invalid id error.
func (d *DAO) SetMultiSite(ctx context.Context, orgID id.OrganizationID, state bool, existence graph.Existence) error {
	return d.setOrganizationFlag(ctx, "set organization multisite", orgID, propMultiSite, state, existence)
}

// SetVerified sets the verification flag, with the same existence policy as
// SetMultiSite.
func (d *DAO) SetVerified(ctx context.Context, orgID id.OrganizationID, state bool, existence graph.Existence) error {
	return d.setOrganizationFlag(ctx, "set organization verified", orgID, propVerified, state, existence)
}

// MarkOrganizationDeleted soft-deletes an organization. Its sites and edges
// stay in place; reads stop returning it.
func (d *DAO) MarkOrganizationDeleted(ctx context.Context, orgID id.OrganizationID) error {
	return d.setOrganizationFlag(ctx, "delete organization", orgID, propDeleted, true, graph.MayBeAbsent)
}

func (d *DAO) setOrganizationFlag(ctx context.Context, desc string, orgID id.OrganizationID, key string, state bool, existence graph.Existence) error {
	_, err := d.graph.Execute(ctx, desc, graph.PropertyUpdate{
		ID:         orgID.String(),
		Label:      LabelOrganization,
		Properties: map[string]any{key: state},
		Existence:  existence,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error updating organization",
			"organization_id", orgID,
			"property", key,
			"error", err,
		)
	}
	return err
}

// SiteParams are the inputs of CreateSite. An empty Name becomes "Default".
// Optional fields are written only when set.
type SiteParams struct {
	Name        string
	Category    string
	Subcategory string
	Latitude    *float64
	Longitude   *float64
	Testing     bool
	Phone       string
	Email       string
	ContactName string
}

// CreateSite writes the site and the OWNS edge from its organization in one
// submission. An unknown organization fails the whole submission with an
// entity creation error and nothing is written.
func (d *DAO) CreateSite(ctx context.Context, orgID id.OrganizationID, p SiteParams) (id.SiteID, error) {
	if err := validation.ValidateOptionalPhoneNumber(p.Phone); err != nil {
		return "", err
	}
	name := p.Name
	if name == "" {
		name = models.DefaultSiteName
	}

	siteID := id.SiteID(d.newID())
	spec := graph.NewVertex(LabelSite, siteID.String()).
		Set(propOrganizationID, orgID.String()).
		Set(propName, name).
		Set(propCategory, p.Category).
		Set(propSubcategory, p.Subcategory).
		Set(propTesting, p.Testing).
		Set(propCreationTimestamp, graph.FormatTime(d.clock())).
		SetFloat(propLatitude, p.Latitude).
		SetFloat(propLongitude, p.Longitude).
		SetString(propContactName, p.ContactName).
		SetString(propPhone, p.Phone).
		SetString(propEmail, p.Email).
		EdgeFrom(EdgeOwns, orgID.String())

	if _, err := d.graph.Execute(ctx, "create site", spec); err != nil {
		d.logger.ErrorContext(ctx, "error creating site",
			"organization_id", orgID,
			"name", name,
			"category", p.Category+"-"+p.Subcategory,
			"testing", p.Testing,
			"error", err,
		)
		return "", err
	}
	return siteID, nil
}

// GetSites lists the (id, name) pairs of the sites an organization owns, in
// engine order. An unknown organization has no sites.
func (d *DAO) GetSites(ctx context.Context, orgID id.OrganizationID) ([]models.SiteSummary, error) {
	vertices, err := d.graph.Neighbors(ctx, "get sites", graph.NeighborQuery{
		From:        orgID.String(),
		FromLabel:   LabelOrganization,
		EdgeLabels:  []string{EdgeOwns},
		Direction:   graph.Out,
		TargetLabel: LabelSite,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting sites", "organization_id", orgID, "error", err)
		return nil, err
	}

	sites := make([]models.SiteSummary, 0, len(vertices))
	for _, v := range vertices {
		dec := graph.NewDecoder(LabelSite, v.ID, v.Properties)
		summary := models.SiteSummary{ID: id.SiteID(v.ID), Name: dec.String(propName)}
		if err := dec.Err(); err != nil {
			return nil, err
		}
		sites = append(sites, summary)
	}
	return sites, nil
}

// GetSite returns ok == false when no site has siteID.
func (d *DAO) GetSite(ctx context.Context, siteID id.SiteID) (models.Site, bool, error) {
	props, ok, err := d.graph.PropertyMapOf(ctx, "get site", graph.VertexQuery{
		ID:    siteID.String(),
		Label: LabelSite,
	})
	if err != nil || !ok {
		return models.Site{}, false, err
	}
	site, err := decodeSite(siteID, props)
	if err != nil {
		return models.Site{}, false, err
	}
	return site, true, nil
}

// UpdateSiteName renames a site of orgID. Ownership is the OWNS edge from the
// organization; a site owned by another organization counts as absent.
func (d *DAO) UpdateSiteName(ctx context.Context, orgID id.OrganizationID, siteID id.SiteID, name string, existence graph.Existence) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "site name cannot be empty")
	}
	owned, err := d.ownsSite(ctx, orgID, siteID)
	if err != nil {
		d.logger.ErrorContext(ctx, "error looking up site owner",
			"organization_id", orgID,
			"site_id", siteID,
			"error", err,
		)
		return err
	}
	if !owned {
		if existence == graph.MustExist {
			return dErrors.InvalidID(siteID.String())
		}
		return nil
	}

	_, err = d.graph.Execute(ctx, "update site name", graph.PropertyUpdate{
		ID:         siteID.String(),
		Label:      LabelSite,
		Properties: map[string]any{propName: name},
		Existence:  existence,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error updating site name",
			"organization_id", orgID,
			"site_id", siteID,
			"error", err,
		)
	}
	return err
}

func (d *DAO) ownsSite(ctx context.Context, orgID id.OrganizationID, siteID id.SiteID) (bool, error) {
	vertices, err := d.graph.Neighbors(ctx, "get site owner", graph.NeighborQuery{
		From:        orgID.String(),
		FromLabel:   LabelOrganization,
		EdgeLabels:  []string{EdgeOwns},
		Direction:   graph.Out,
		TargetLabel: LabelSite,
	})
	if err != nil {
		return false, err
	}
	for _, v := range vertices {
		if v.ID == siteID.String() {
			return true, nil
		}
	}
	return false, nil
}

// CreateScannable writes an active scannable and the OWNS edge from siteID in
// one submission. orgID is only used as log context.
func (d *DAO) CreateScannable(ctx context.Context, orgID id.OrganizationID, siteID id.SiteID, scannableType models.ScannableType, singleUse bool) (id.ScannableID, error) {
	if !scannableType.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported scannable type %q", scannableType.String())
	}

	scannableID := id.ScannableID(d.newID())
	spec := graph.NewVertex(LabelScannable, scannableID.String()).
		Set(propType, scannableType.String()).
		Set(propSingleUse, singleUse).
		Set(propActive, true).
		Set(propCreationTimestamp, graph.FormatTime(d.clock())).
		EdgeFrom(EdgeOwns, siteID.String())

	if _, err := d.graph.Execute(ctx, "create scannable", spec); err != nil {
		d.logger.ErrorContext(ctx, "error creating scannable",
			"organization_id", orgID,
			"site_id", siteID,
			"type", scannableType,
			"error", err,
		)
		return "", err
	}
	return scannableID, nil
}

// GetScannables lists the scannables a site owns, in engine order.
func (d *DAO) GetScannables(ctx context.Context, siteID id.SiteID) ([]models.Scannable, error) {
	vertices, err := d.graph.Neighbors(ctx, "get scannables", graph.NeighborQuery{
		From:        siteID.String(),
		FromLabel:   LabelSite,
		EdgeLabels:  []string{EdgeOwns},
		Direction:   graph.Out,
		TargetLabel: LabelScannable,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting scannables", "site_id", siteID, "error", err)
		return nil, err
	}

	scannables := make([]models.Scannable, 0, len(vertices))
	for _, v := range vertices {
		s, err := decodeScannable(id.ScannableID(v.ID), v.Properties)
		if err != nil {
			return nil, err
		}
		scannables = append(scannables, s)
	}
	return scannables, nil
}

// UpdateScannableName names or renames a scannable.
func (d *DAO) UpdateScannableName(ctx context.Context, scannableID id.ScannableID, name string, existence graph.Existence) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "scannable name cannot be empty")
	}
	_, err := d.graph.Execute(ctx, "update scannable name", graph.PropertyUpdate{
		ID:         scannableID.String(),
		Label:      LabelScannable,
		Properties: map[string]any{propName: name},
		Existence:  existence,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error updating scannable name", "scannable_id", scannableID, "error", err)
	}
	return err
}
