package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "smarttracing/pkg/domain-errors"
)

// IDGenerator produces entity identifiers. DAOs call it exactly once per new
// entity, before the first mutation that references the id.
type IDGenerator func() string

// NewID returns a random (version 4) UUID in canonical string form.
func NewID() string {
	return uuid.NewString()
}

// Typed identifiers keep vertex ids of different entity kinds from being mixed
// up at call sites. They wrap the canonical UUID string stored as the vertex id.
type (
	OrganizationID string
	SiteID         string
	ScannableID    string
	DeviceID       string
	UserID         string
	ReportID       string
)

func (id OrganizationID) String() string { return string(id) }
func (id SiteID) String() string         { return string(id) }
func (id ScannableID) String() string    { return string(id) }
func (id DeviceID) String() string       { return string(id) }
func (id UserID) String() string         { return string(id) }
func (id ReportID) String() string       { return string(id) }

// ParseOrganizationID validates s as a canonical, non-nil UUID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	v, err := parseUUID(s, "organization")
	return OrganizationID(v), err
}

// ParseSiteID validates s as a canonical, non-nil UUID.
func ParseSiteID(s string) (SiteID, error) {
	v, err := parseUUID(s, "site")
	return SiteID(v), err
}

// ParseScannableID validates s as a canonical, non-nil UUID.
func ParseScannableID(s string) (ScannableID, error) {
	v, err := parseUUID(s, "scannable")
	return ScannableID(v), err
}

// ParseDeviceID validates s as a canonical, non-nil UUID.
func ParseDeviceID(s string) (DeviceID, error) {
	v, err := parseUUID(s, "device")
	return DeviceID(v), err
}

// ParseUserID validates s as a canonical, non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	v, err := parseUUID(s, "user")
	return UserID(v), err
}

// ParseReportID validates s as a canonical, non-nil UUID.
func ParseReportID(s string) (ReportID, error) {
	v, err := parseUUID(s, "report")
	return ReportID(v), err
}

// parseUUID accepts only the canonical 36 character hyphenated form so that the
// parsed value round-trips byte for byte into vertex lookups.
func parseUUID(s, kind string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil || len(s) != 36 {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid %s id format", kind)
	}
	if parsed == uuid.Nil {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s id cannot be nil", kind)
	}
	canonical := parsed.String()
	if canonical != strings.ToLower(s) {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid %s id format", kind)
	}
	return canonical, nil
}
