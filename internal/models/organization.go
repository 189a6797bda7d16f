// Package models holds the domain records returned by the DAOs. Records are
// values: DAOs build them from validated inputs or decode them from a stored
// property map, and callers never mutate the graph through them.
package models

import (
	"time"

	id "smarttracing/pkg/domain"
)

// Address is the postal address of an organization. Every field is required
// on write and decoded as required on read.
type Address struct {
	Premise            string `json:"premise"`
	Thoroughfare       string `json:"thoroughfare"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrative_area"`
	PostalCode         string `json:"postal_code"`
	Country            string `json:"country"`
}

// ContactInfo groups the optional ways to reach a person or organization.
type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Organization is the root of the ownership forest: it owns sites, which own
// scannables.
//
// Invariants:
//   - ContactInfo.Phone passed phone validation before the vertex was written
//   - Verified is false at creation and only changes through SetVerified
//   - a soft-deleted organization is never returned by reads
type Organization struct {
	ID                   id.OrganizationID `json:"id"`
	Name                 string            `json:"name"`
	Address              Address           `json:"address"`
	ContactName          string            `json:"contact_name"`
	ContactInfo          ContactInfo       `json:"contact_info"`
	HasTestingFacilities bool              `json:"has_testing_facilities"`
	MultiSite            bool              `json:"multi_site"`
	Verified             bool              `json:"verified"`
	CreatedAt            time.Time         `json:"created_at"`
}

// DefaultSiteName is the name given to a site created without one, and to the
// site created alongside every onboarded organization.
const DefaultSiteName = "Default"

// Site is a physical location owned by an organization.
type Site struct {
	ID             id.SiteID         `json:"id"`
	OrganizationID id.OrganizationID `json:"organization_id"`
	Name           string            `json:"name"`
	Category       string            `json:"category"`
	Subcategory    string            `json:"subcategory"`
	Testing        bool              `json:"testing"`
	Latitude       *float64          `json:"latitude,omitempty"`
	Longitude      *float64          `json:"longitude,omitempty"`
	ContactName    string            `json:"contact_name,omitempty"`
	ContactInfo    ContactInfo       `json:"contact_info"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SiteSummary is the (id, name) projection returned when listing sites.
type SiteSummary struct {
	ID   id.SiteID `json:"id"`
	Name string    `json:"name"`
}

// Scannable is a QR code or bluetooth receiver placed at a site.
type Scannable struct {
	ID        id.ScannableID `json:"id"`
	Name      string         `json:"name,omitempty"`
	Type      ScannableType  `json:"type"`
	SingleUse bool           `json:"single_use"`
	Active    bool           `json:"active"`
}
