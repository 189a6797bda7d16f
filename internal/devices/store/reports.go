package store

import (
	"context"
	"time"

	"smarttracing/internal/graph"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
)

// ReportDAO records self-reported test results and symptoms. A report is
// linked to its device twice: REPORTED from the device and a kind specific
// edge (FOR or REPORT_FOR) back to it.
type ReportDAO struct {
	base
}

func NewReportDAO(client *graph.Client, opts ...Option) *ReportDAO {
	return &ReportDAO{base: newBase(client, opts)}
}

// TestResultParams describe a self-reported test. A zero Timestamp is
// replaced with the current time.
type TestResultParams struct {
	TestDate       time.Time
	TestedPositive bool
	Timestamp      time.Time
}

// RecordTestResult writes an unverified test result and both device edges in
// one submission.
func (d *ReportDAO) RecordTestResult(ctx context.Context, deviceID id.DeviceID, p TestResultParams) (id.ReportID, error) {
	if p.TestDate.IsZero() {
		return "", dErrors.New(dErrors.CodeValidation, "test date is required")
	}
	return d.record(ctx, models.ReportKindTestResult, deviceID, func(reportID id.ReportID) *graph.VertexSpec {
		return graph.NewVertex(LabelTestResult, reportID.String()).
			Set(propVerified, false).
			Set(propTestDate, p.TestDate.Format(graph.DateLayout)).
			Set(propTestedPositive, p.TestedPositive).
			Set(propTimestamp, graph.FormatTime(d.timestamp(p.Timestamp)))
	})
}

// SymptomsParams describe a self-reported set of symptoms. Repeated symptoms
// are stored once, in first seen order.
type SymptomsParams struct {
	Symptoms    []models.Symptom
	Temperature *float64
	Timestamp   time.Time
}

// RecordSymptoms writes an unverified symptoms report and both device edges in
// one submission. Symptoms outside the enumeration are rejected before
// anything is written.
func (d *ReportDAO) RecordSymptoms(ctx context.Context, deviceID id.DeviceID, p SymptomsParams) (id.ReportID, error) {
	symptoms, err := normalizeSymptoms(p.Symptoms)
	if err != nil {
		return "", err
	}
	return d.record(ctx, models.ReportKindSymptoms, deviceID, func(reportID id.ReportID) *graph.VertexSpec {
		spec := graph.NewVertex(LabelSymptoms, reportID.String()).
			Set(propVerified, false).
			Set(propTimestamp, graph.FormatTime(d.timestamp(p.Timestamp))).
			SetFloat(propTemperature, p.Temperature)
		if len(symptoms) > 0 {
			spec.Set(propSymptoms, symptoms)
		}
		return spec
	})
}

func normalizeSymptoms(in []models.Symptom) ([]string, error) {
	seen := make(map[models.Symptom]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !s.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported symptom %q", s.String())
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s.String())
	}
	return out, nil
}

func (d *ReportDAO) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return d.clock()
	}
	return t
}

// record checks the device, then assigns the report id and writes the vertex
// built by build together with both device edges.
func (d *ReportDAO) record(ctx context.Context, kind models.ReportKind, deviceID id.DeviceID, build func(id.ReportID) *graph.VertexSpec) (id.ReportID, error) {
	link, err := kind.LinkLabel()
	if err != nil {
		return "", err
	}
	ok, err := d.deviceExists(ctx, deviceID)
	if err != nil {
		d.logger.ErrorContext(ctx, "error looking up device for report", "device_id", deviceID, "error", err)
		return "", err
	}
	if !ok {
		return "", dErrors.InvalidID(deviceID.String())
	}

	reportID := id.ReportID(d.newID())
	spec := build(reportID).
		EdgeFrom(EdgeReported, deviceID.String()).
		EdgeTo(link, deviceID.String())
	if _, err := d.graph.Execute(ctx, "record "+kind.Label(), spec); err != nil {
		d.logger.ErrorContext(ctx, "error recording report",
			"kind", kind.Label(),
			"device_id", deviceID,
			"error", err,
		)
		return "", err
	}
	return reportID, nil
}

// LinkedDevices walks both device edges of a report in either direction. A
// correctly linked report yields its device twice.
func (d *ReportDAO) LinkedDevices(ctx context.Context, kind models.ReportKind, reportID id.ReportID) ([]id.DeviceID, error) {
	link, err := kind.LinkLabel()
	if err != nil {
		return nil, err
	}
	vertices, err := d.graph.Neighbors(ctx, "get report devices", graph.NeighborQuery{
		From:        reportID.String(),
		FromLabel:   kind.Label(),
		EdgeLabels:  []string{EdgeReported, link},
		Direction:   graph.Both,
		TargetLabel: LabelDevice,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting report devices", "report_id", reportID, "error", err)
		return nil, err
	}
	out := make([]id.DeviceID, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, id.DeviceID(v.ID))
	}
	return out, nil
}

// ListReports returns every report filed from a device, in engine order.
func (d *ReportDAO) ListReports(ctx context.Context, deviceID id.DeviceID) ([]models.ReportSummary, error) {
	vertices, err := d.graph.Neighbors(ctx, "list reports", graph.NeighborQuery{
		From:       deviceID.String(),
		FromLabel:  LabelDevice,
		EdgeLabels: []string{EdgeReported},
		Direction:  graph.Out,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error listing reports", "device_id", deviceID, "error", err)
		return nil, err
	}

	reports := make([]models.ReportSummary, 0, len(vertices))
	for _, v := range vertices {
		kind := models.ReportKind(v.Label)
		if _, err := kind.LinkLabel(); err != nil {
			return nil, dErrors.Newf(dErrors.CodeCorruptRecord, "device %s reported a %s vertex %s", deviceID, v.Label, v.ID)
		}
		dec := graph.NewDecoder(v.Label, v.ID, v.Properties)
		summary := models.ReportSummary{
			ID:        id.ReportID(v.ID),
			Kind:      kind,
			Verified:  dec.Bool(propVerified),
			Timestamp: dec.Time(propTimestamp),
		}
		if err := dec.Err(); err != nil {
			return nil, err
		}
		reports = append(reports, summary)
	}
	return reports, nil
}

// GetTestResult returns ok == false when no test result has reportID.
func (d *ReportDAO) GetTestResult(ctx context.Context, reportID id.ReportID) (models.TestResult, bool, error) {
	props, deviceID, ok, err := d.getReport(ctx, models.ReportKindTestResult, reportID)
	if err != nil || !ok {
		return models.TestResult{}, false, err
	}
	dec := graph.NewDecoder(LabelTestResult, reportID.String(), props)
	result := models.TestResult{
		ID:             reportID,
		DeviceID:       deviceID,
		TestDate:       dec.Date(propTestDate),
		TestedPositive: dec.Bool(propTestedPositive),
		Verified:       dec.Bool(propVerified),
		Timestamp:      dec.Time(propTimestamp),
	}
	if err := dec.Err(); err != nil {
		return models.TestResult{}, false, err
	}
	return result, true, nil
}

// GetSymptoms returns ok == false when no symptoms report has reportID.
func (d *ReportDAO) GetSymptoms(ctx context.Context, reportID id.ReportID) (models.Symptoms, bool, error) {
	props, deviceID, ok, err := d.getReport(ctx, models.ReportKindSymptoms, reportID)
	if err != nil || !ok {
		return models.Symptoms{}, false, err
	}
	dec := graph.NewDecoder(LabelSymptoms, reportID.String(), props)
	report := models.Symptoms{
		ID:          reportID,
		DeviceID:    deviceID,
		Temperature: dec.OptionalFloat(propTemperature),
		Verified:    dec.Bool(propVerified),
		Timestamp:   dec.Time(propTimestamp),
	}
	for _, s := range dec.Strings(propSymptoms) {
		report.Symptoms = append(report.Symptoms, models.Symptom(s))
	}
	if err := dec.Err(); err != nil {
		return models.Symptoms{}, false, err
	}
	return report, true, nil
}

// getReport reads the report properties and the device its link edge points
// to.
func (d *ReportDAO) getReport(ctx context.Context, kind models.ReportKind, reportID id.ReportID) (graph.PropertyMap, id.DeviceID, bool, error) {
	props, ok, err := d.graph.PropertyMapOf(ctx, "get "+kind.Label(), graph.VertexQuery{
		ID:    reportID.String(),
		Label: kind.Label(),
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "error getting report", "kind", kind.Label(), "report_id", reportID, "error", err)
		return nil, "", false, err
	}
	if !ok {
		return nil, "", false, nil
	}

	link, _ := kind.LinkLabel()
	devices, err := d.graph.Neighbors(ctx, "get report device", graph.NeighborQuery{
		From:        reportID.String(),
		FromLabel:   kind.Label(),
		EdgeLabels:  []string{link},
		Direction:   graph.Out,
		TargetLabel: LabelDevice,
	})
	if err != nil {
		return nil, "", false, err
	}
	if len(devices) != 1 {
		return nil, "", false, dErrors.Newf(dErrors.CodeCorruptRecord,
			"corrupt %s record %s: expected one %s edge, found %d", kind.Label(), reportID, link, len(devices))
	}
	return props, id.DeviceID(devices[0].ID), true, nil
}
