// Package store is the data access layer for devices, the users that own them
// and the health reports filed from them.
package store

import (
	"context"
	"log/slog"
	"time"

	"smarttracing/internal/graph"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
)

// Vertex and edge labels owned by this package.
const (
	LabelDevice     = "Device"
	LabelUser       = "User"
	EdgeOwns        = "OWNS"
	EdgeReported    = "REPORTED"
	EdgeFor         = "FOR"
	EdgeReportFor   = "REPORT_FOR"
	LabelTestResult = string(models.ReportKindTestResult)
	LabelSymptoms   = string(models.ReportKindSymptoms)
)

const (
	propFingerprint       = "fingerprint"
	propCreationTimestamp = "creationTimestamp"
	propName              = "name"
	propPhone             = "phone"
	propEmail             = "email"
	propDeleted           = "deleted"
	propTimestamp         = "timestamp"
	propVerified          = "verified"
	propTestDate          = "testDate"
	propTestedPositive    = "testedPositive"
	propSymptoms          = "symptoms"
	propTemperature       = "temperature"
)

// base carries what every DAO in this package shares.
type base struct {
	graph  *graph.Client
	newID  id.IDGenerator
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*base)

func WithIDGenerator(gen id.IDGenerator) Option {
	return func(b *base) {
		if gen != nil {
			b.newID = gen
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *base) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

func newBase(client *graph.Client, opts []Option) base {
	b := base{
		graph:  client,
		newID:  id.NewID,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// deviceExists is the referential check run before writes that link to a
// device.
func (b base) deviceExists(ctx context.Context, deviceID id.DeviceID) (bool, error) {
	_, ok, err := b.graph.GetIfPresent(ctx, "get device", graph.VertexQuery{
		ID:    deviceID.String(),
		Label: LabelDevice,
	})
	return ok, err
}

// DeviceDAO creates and reads devices.
type DeviceDAO struct {
	base
}

func NewDeviceDAO(client *graph.Client, opts ...Option) *DeviceDAO {
	return &DeviceDAO{base: newBase(client, opts)}
}

// CreateDevice writes a device. fingerprint is optional.
func (d *DeviceDAO) CreateDevice(ctx context.Context, fingerprint string) (id.DeviceID, error) {
	deviceID := id.DeviceID(d.newID())
	spec := graph.NewVertex(LabelDevice, deviceID.String()).
		Set(propCreationTimestamp, graph.FormatTime(d.clock())).
		SetString(propFingerprint, fingerprint)

	if _, err := d.graph.Execute(ctx, "create device", spec); err != nil {
		d.logger.ErrorContext(ctx, "error creating device", "error", err)
		return "", err
	}
	return deviceID, nil
}

func (d *DeviceDAO) DeviceExists(ctx context.Context, deviceID id.DeviceID) (bool, error) {
	ok, err := d.deviceExists(ctx, deviceID)
	if err != nil {
		d.logger.ErrorContext(ctx, "error looking up device", "device_id", deviceID, "error", err)
	}
	return ok, err
}

// GetDevice returns ok == false when no device has deviceID.
func (d *DeviceDAO) GetDevice(ctx context.Context, deviceID id.DeviceID) (models.Device, bool, error) {
	props, ok, err := d.graph.PropertyMapOf(ctx, "get device", graph.VertexQuery{
		ID:    deviceID.String(),
		Label: LabelDevice,
	})
	if err != nil || !ok {
		return models.Device{}, false, err
	}
	dec := graph.NewDecoder(LabelDevice, deviceID.String(), props)
	device := models.Device{
		ID:          deviceID,
		Fingerprint: dec.OptionalString(propFingerprint),
		CreatedAt:   dec.Time(propCreationTimestamp),
	}
	if err := dec.Err(); err != nil {
		return models.Device{}, false, err
	}
	return device, true, nil
}
