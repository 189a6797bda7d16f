package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"smarttracing/internal/devices/store"
	"smarttracing/internal/graph"
	"smarttracing/internal/graph/memory"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

const unknownDevice = id.DeviceID("00000000-0000-4000-8000-999999999999")

type DevicesSuite struct {
	suite.Suite
	ctx     context.Context
	engine  *memory.Engine
	devices *store.DeviceDAO
	users   *store.UserDAO
	reports *store.ReportDAO
}

func TestDevicesSuite(t *testing.T) {
	suite.Run(t, new(DevicesSuite))
}

func (s *DevicesSuite) SetupTest() {
	s.ctx = context.Background()
	s.engine = memory.New()
	client, err := graph.NewClient(s.engine)
	s.Require().NoError(err)
	opts := []store.Option{
		store.WithIDGenerator(testutil.SequentialIDs()),
		store.WithClock(testutil.FixedClock(fixedNow)),
	}
	s.devices = store.NewDeviceDAO(client, opts...)
	s.users = store.NewUserDAO(client, opts...)
	s.reports = store.NewReportDAO(client, opts...)
}

func (s *DevicesSuite) createDevice() id.DeviceID {
	deviceID, err := s.devices.CreateDevice(s.ctx, "")
	s.Require().NoError(err)
	return deviceID
}

func (s *DevicesSuite) TestDevice() {
	deviceID, err := s.devices.CreateDevice(s.ctx, "fp-1")
	s.Require().NoError(err)

	ok, err := s.devices.DeviceExists(s.ctx, deviceID)
	s.Require().NoError(err)
	s.True(ok)

	device, ok, err := s.devices.GetDevice(s.ctx, deviceID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(models.Device{ID: deviceID, Fingerprint: "fp-1", CreatedAt: fixedNow}, device)

	ok, err = s.devices.DeviceExists(s.ctx, unknownDevice)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *DevicesSuite) TestCreateUser() {
	s.Run("round trips contact info", func() {
		deviceID := s.createDevice()
		userID, err := s.users.CreateUser(s.ctx, store.UserParams{
			DeviceID: deviceID,
			Name:     "Ada",
			Phone:    "+12225551234",
			Email:    "ada@x.io",
		})
		s.Require().NoError(err)

		user, ok, err := s.users.GetUser(s.ctx, userID)
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal(models.User{
			ID:          userID,
			Name:        "Ada",
			ContactInfo: models.ContactInfo{Email: "ada@x.io", Phone: "+12225551234"},
			CreatedAt:   fixedNow,
		}, user)
		s.Equal(1, s.engine.EdgeCount(store.EdgeOwns))
	})

	s.Run("all optional fields may be absent", func() {
		userID, err := s.users.CreateUser(s.ctx, store.UserParams{DeviceID: s.createDevice()})
		s.Require().NoError(err)

		user, ok, err := s.users.GetUser(s.ctx, userID)
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Empty(user.Name)
		s.Empty(user.ContactInfo)
	})

	s.Run("missing device is an invalid id and writes nothing", func() {
		before := s.engine.VertexCount(store.LabelUser)

		_, err := s.users.CreateUser(s.ctx, store.UserParams{DeviceID: unknownDevice, Name: "Ghost"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidID))
		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal(unknownDevice.String(), de.ID)
		s.Equal(before, s.engine.VertexCount(store.LabelUser))
	})

	s.Run("missing device consumes no id", func() {
		client, err := graph.NewClient(memory.New())
		s.Require().NoError(err)
		gen := testutil.SequentialIDs()
		devices := store.NewDeviceDAO(client, store.WithIDGenerator(gen))
		users := store.NewUserDAO(client, store.WithIDGenerator(gen))
		reports := store.NewReportDAO(client, store.WithIDGenerator(gen))

		deviceID, err := devices.CreateDevice(s.ctx, "")
		s.Require().NoError(err)
		s.Equal(id.DeviceID("00000000-0000-4000-8000-000000000001"), deviceID)
		_, err = users.CreateUser(s.ctx, store.UserParams{DeviceID: unknownDevice})
		s.Require().Error(err)
		_, err = reports.RecordSymptoms(s.ctx, unknownDevice, store.SymptomsParams{})
		s.Require().Error(err)

		userID, err := users.CreateUser(s.ctx, store.UserParams{DeviceID: deviceID})
		s.Require().NoError(err)
		s.Equal(id.UserID("00000000-0000-4000-8000-000000000002"), userID)
	})

	s.Run("invalid phone is rejected before the device lookup", func() {
		before := s.engine.VertexCount(store.LabelUser)

		_, err := s.users.CreateUser(s.ctx, store.UserParams{DeviceID: unknownDevice, Phone: "555-1234"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPhoneNumber))
		s.Equal(before, s.engine.VertexCount(store.LabelUser))
	})
}

func (s *DevicesSuite) TestDeleteUser() {
	s.Run("delete then get is absent but the vertex remains", func() {
		userID, err := s.users.CreateUser(s.ctx, store.UserParams{DeviceID: s.createDevice(), Name: "Ada"})
		s.Require().NoError(err)

		s.Require().NoError(s.users.DeleteUser(s.ctx, userID, graph.MustExist))

		_, ok, err := s.users.GetUser(s.ctx, userID)
		s.Require().NoError(err)
		s.False(ok)
		label, exists := s.engine.Label(userID.String())
		s.True(exists)
		s.Equal(store.LabelUser, label)
	})

	s.Run("unknown user follows the existence policy", func() {
		unknown := id.UserID("00000000-0000-4000-8000-999999999998")
		s.NoError(s.users.DeleteUser(s.ctx, unknown, graph.MayBeAbsent))
		s.True(dErrors.HasCode(s.users.DeleteUser(s.ctx, unknown, graph.MustExist), dErrors.CodeInvalidID))
	})

	s.Run("get of unknown user is absent", func() {
		_, ok, err := s.users.GetUser(s.ctx, id.UserID("00000000-0000-4000-8000-999999999997"))
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *DevicesSuite) TestRecordTestResult() {
	deviceID := s.createDevice()
	testDate := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	reportedAt := fixedNow.Add(-time.Hour)

	reportID, err := s.reports.RecordTestResult(s.ctx, deviceID, store.TestResultParams{
		TestDate:       testDate,
		TestedPositive: true,
		Timestamp:      reportedAt,
	})
	s.Require().NoError(err)

	got, ok, err := s.reports.GetTestResult(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(models.TestResult{
		ID:             reportID,
		DeviceID:       deviceID,
		TestDate:       testDate,
		TestedPositive: true,
		Verified:       false,
		Timestamp:      reportedAt,
	}, got)

	s.Run("both edges link the device", func() {
		linked, err := s.reports.LinkedDevices(s.ctx, models.ReportKindTestResult, reportID)
		s.Require().NoError(err)
		s.Equal([]id.DeviceID{deviceID, deviceID}, linked)
		s.Equal(1, s.engine.EdgeCount(store.EdgeReported))
		s.Equal(1, s.engine.EdgeCount(store.EdgeFor))
	})

	s.Run("missing device is an invalid id and writes nothing", func() {
		before := s.engine.VertexCount(store.LabelTestResult)
		_, err := s.reports.RecordTestResult(s.ctx, unknownDevice, store.TestResultParams{TestDate: testDate})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidID))
		s.Equal(before, s.engine.VertexCount(store.LabelTestResult))
	})

	s.Run("test date is required", func() {
		_, err := s.reports.RecordTestResult(s.ctx, deviceID, store.TestResultParams{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *DevicesSuite) TestRecordSymptoms() {
	deviceID := s.createDevice()
	temperature := 38.2

	reportID, err := s.reports.RecordSymptoms(s.ctx, deviceID, store.SymptomsParams{
		Symptoms:    []models.Symptom{models.SymptomLossOfTaste, models.SymptomFever, models.SymptomLossOfTaste},
		Temperature: &temperature,
	})
	s.Require().NoError(err)

	got, ok, err := s.reports.GetSymptoms(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(deviceID, got.DeviceID)
	s.Equal([]models.Symptom{models.SymptomLossOfTaste, models.SymptomFever}, got.Symptoms)
	s.Require().NotNil(got.Temperature)
	s.Equal(temperature, *got.Temperature)
	s.False(got.Verified)
	s.Equal(fixedNow, got.Timestamp, "zero timestamp falls back to the clock")

	s.Run("both edges link the device", func() {
		linked, err := s.reports.LinkedDevices(s.ctx, models.ReportKindSymptoms, reportID)
		s.Require().NoError(err)
		s.Equal([]id.DeviceID{deviceID, deviceID}, linked)
		s.Equal(1, s.engine.EdgeCount(store.EdgeReportFor))
	})

	s.Run("wrong kind finds nothing", func() {
		linked, err := s.reports.LinkedDevices(s.ctx, models.ReportKindTestResult, reportID)
		s.Require().NoError(err)
		s.Empty(linked)
	})

	s.Run("unknown symptom is rejected before writing", func() {
		before := s.engine.VertexCount(store.LabelSymptoms)
		_, err := s.reports.RecordSymptoms(s.ctx, deviceID, store.SymptomsParams{
			Symptoms: []models.Symptom{"SNEEZING"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(before, s.engine.VertexCount(store.LabelSymptoms))
	})

	s.Run("no symptoms and no temperature", func() {
		emptyID, err := s.reports.RecordSymptoms(s.ctx, deviceID, store.SymptomsParams{})
		s.Require().NoError(err)

		got, ok, err := s.reports.GetSymptoms(s.ctx, emptyID)
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Empty(got.Symptoms)
		s.Nil(got.Temperature)
	})
}

func (s *DevicesSuite) TestListReports() {
	deviceID := s.createDevice()
	testID, err := s.reports.RecordTestResult(s.ctx, deviceID, store.TestResultParams{
		TestDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	symptomsID, err := s.reports.RecordSymptoms(s.ctx, deviceID, store.SymptomsParams{
		Symptoms: []models.Symptom{models.SymptomCough},
	})
	s.Require().NoError(err)

	reports, err := s.reports.ListReports(s.ctx, deviceID)
	s.Require().NoError(err)
	s.Equal([]models.ReportSummary{
		{ID: testID, Kind: models.ReportKindTestResult, Timestamp: fixedNow},
		{ID: symptomsID, Kind: models.ReportKindSymptoms, Timestamp: fixedNow},
	}, reports)

	reports, err = s.reports.ListReports(s.ctx, unknownDevice)
	s.Require().NoError(err)
	s.Empty(reports)
}

func (s *DevicesSuite) TestUnknownReportIsAbsent() {
	unknown := id.ReportID("00000000-0000-4000-8000-999999999996")

	_, ok, err := s.reports.GetTestResult(s.ctx, unknown)
	s.Require().NoError(err)
	s.False(ok)

	_, ok, err = s.reports.GetSymptoms(s.ctx, unknown)
	s.Require().NoError(err)
	s.False(ok)
}
