package store

import (
	"smarttracing/internal/graph"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
)

func decodeOrganization(orgID id.OrganizationID, props graph.PropertyMap) (models.Organization, error) {
	d := graph.NewDecoder(LabelOrganization, orgID.String(), props)
	org := models.Organization{
		ID:   orgID,
		Name: d.String(propName),
		Address: models.Address{
			Premise:            d.String(propPremise),
			Thoroughfare:       d.String(propThoroughfare),
			Locality:           d.String(propLocality),
			AdministrativeArea: d.String(propAdministrativeArea),
			PostalCode:         d.String(propPostalCode),
			Country:            d.String(propCountry),
		},
		ContactName: d.String(propContactName),
		ContactInfo: models.ContactInfo{
			Email: d.OptionalString(propEmail),
			Phone: d.OptionalString(propPhone),
		},
		HasTestingFacilities: d.Bool(propHasTestingFacilities),
		MultiSite:            d.Bool(propMultiSite),
		Verified:             d.Bool(propVerified),
		CreatedAt:            d.Time(propCreationTimestamp),
	}
	if err := d.Err(); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func decodeSite(siteID id.SiteID, props graph.PropertyMap) (models.Site, error) {
	d := graph.NewDecoder(LabelSite, siteID.String(), props)
	site := models.Site{
		ID:             siteID,
		OrganizationID: id.OrganizationID(d.String(propOrganizationID)),
		Name:           d.String(propName),
		Category:       d.String(propCategory),
		Subcategory:    d.String(propSubcategory),
		Testing:        d.Bool(propTesting),
		Latitude:       d.OptionalFloat(propLatitude),
		Longitude:      d.OptionalFloat(propLongitude),
		ContactName:    d.OptionalString(propContactName),
		ContactInfo: models.ContactInfo{
			Email: d.OptionalString(propEmail),
			Phone: d.OptionalString(propPhone),
		},
		CreatedAt: d.Time(propCreationTimestamp),
	}
	if err := d.Err(); err != nil {
		return models.Site{}, err
	}
	return site, nil
}

func decodeScannable(scannableID id.ScannableID, props graph.PropertyMap) (models.Scannable, error) {
	d := graph.NewDecoder(LabelScannable, scannableID.String(), props)
	s := models.Scannable{
		ID:        scannableID,
		Name:      d.OptionalString(propName),
		Type:      models.ScannableType(d.String(propType)),
		SingleUse: d.Bool(propSingleUse),
		Active:    d.Bool(propActive),
	}
	if err := d.Err(); err != nil {
		return models.Scannable{}, err
	}
	if !s.Type.IsValid() {
		return models.Scannable{}, dErrors.Newf(dErrors.CodeCorruptRecord,
			"corrupt %s record %s: property %s has unsupported value %q", LabelScannable, scannableID, propType, s.Type)
	}
	return s, nil
}
