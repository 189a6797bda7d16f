package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smarttracing/internal/devices/store"
	"smarttracing/internal/graph"
	"smarttracing/internal/graph/mocks"
	"smarttracing/internal/models"
	id "smarttracing/pkg/domain"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/testutil"
)

var errEngine = errors.New("websocket: close 1006 (abnormal closure)")

type EngineFailureSuite struct {
	suite.Suite
	engine  *mocks.MockEngine
	devices *store.DeviceDAO
	users   *store.UserDAO
	reports *store.ReportDAO
}

func TestEngineFailureSuite(t *testing.T) {
	suite.Run(t, new(EngineFailureSuite))
}

func (s *EngineFailureSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.engine = mocks.NewMockEngine(ctrl)
	client, err := graph.NewClient(s.engine)
	s.Require().NoError(err)
	opts := []store.Option{store.WithIDGenerator(testutil.SequentialIDs())}
	s.devices = store.NewDeviceDAO(client, opts...)
	s.users = store.NewUserDAO(client, opts...)
	s.reports = store.NewReportDAO(client, opts...)
}

func (s *EngineFailureSuite) deviceFound() {
	s.engine.EXPECT().VertexProperties(gomock.Any(), gomock.Any()).
		Return(graph.PropertyMap{"creationTimestamp": {"2024-03-01T10:30:00Z"}}, nil)
}

func (s *EngineFailureSuite) TestCreatePathsWrapAsEntityCreation() {
	ctx := context.Background()
	deviceID := id.DeviceID(id.NewID())

	s.engine.EXPECT().AddVertex(gomock.Any(), gomock.Any()).Return(errEngine)
	_, err := s.devices.CreateDevice(ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeEntityCreation))
	s.ErrorIs(err, errEngine)

	s.deviceFound()
	s.engine.EXPECT().AddVertex(gomock.Any(), gomock.Any()).Return(errEngine)
	_, err = s.users.CreateUser(ctx, store.UserParams{DeviceID: deviceID})
	s.True(dErrors.HasCode(err, dErrors.CodeEntityCreation))

	s.deviceFound()
	s.engine.EXPECT().AddVertex(gomock.Any(), gomock.Any()).Return(errEngine)
	_, err = s.reports.RecordTestResult(ctx, deviceID, store.TestResultParams{TestDate: time.Now()})
	s.True(dErrors.HasCode(err, dErrors.CodeEntityCreation))
}

func (s *EngineFailureSuite) TestDeviceLookupFailureStopsTheWrite() {
	s.engine.EXPECT().VertexProperties(gomock.Any(), gomock.Any()).Return(nil, errEngine)
	s.engine.EXPECT().AddVertex(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.users.CreateUser(context.Background(), store.UserParams{DeviceID: id.DeviceID(id.NewID())})
	s.True(dErrors.HasCode(err, dErrors.CodeQueryFailed))
	s.ErrorIs(err, errEngine)
}

func (s *EngineFailureSuite) TestDeleteUserWrapsAsUpdateFailed() {
	s.engine.EXPECT().UpdateProperties(gomock.Any(), gomock.Any()).Return(0, errEngine)

	err := s.users.DeleteUser(context.Background(), "u", graph.MayBeAbsent)
	s.True(dErrors.HasCode(err, dErrors.CodeUpdateFailed))
	s.ErrorIs(err, errEngine)
}

func (s *EngineFailureSuite) TestReadPathsWrapAsQueryFailed() {
	ctx := context.Background()
	s.engine.EXPECT().VertexProperties(gomock.Any(), gomock.Any()).Return(nil, errEngine).Times(2)
	s.engine.EXPECT().Neighbors(gomock.Any(), gomock.Any()).Return(nil, errEngine).Times(2)

	_, _, err := s.users.GetUser(ctx, "u")
	s.True(dErrors.HasCode(err, dErrors.CodeQueryFailed))

	_, err = s.devices.DeviceExists(ctx, "d")
	s.True(dErrors.HasCode(err, dErrors.CodeQueryFailed))

	_, err = s.reports.LinkedDevices(ctx, models.ReportKindSymptoms, "r")
	s.True(dErrors.HasCode(err, dErrors.CodeQueryFailed))

	_, err = s.reports.ListReports(ctx, "d")
	s.True(dErrors.HasCode(err, dErrors.CodeQueryFailed))
}

func (s *EngineFailureSuite) TestReportSubmissionCarriesBothEdges() {
	deviceID := id.DeviceID(id.NewID())
	var submitted graph.VertexSpec
	s.deviceFound()
	s.engine.EXPECT().AddVertex(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec graph.VertexSpec) error {
			submitted = spec
			return nil
		})

	reportID, err := s.reports.RecordSymptoms(context.Background(), deviceID, store.SymptomsParams{
		Symptoms: []models.Symptom{models.SymptomCough, models.SymptomCough},
	})
	s.Require().NoError(err)
	s.Equal(reportID.String(), submitted.ID)
	s.Equal(store.LabelSymptoms, submitted.Label)
	s.Equal([]string{"COUGH"}, submitted.Properties["symptoms"])
	s.Equal(false, submitted.Properties["verified"])
	s.Equal([]graph.EdgeSpec{
		{Label: store.EdgeReported, Direction: graph.In, Other: deviceID.String()},
		{Label: store.EdgeReportFor, Direction: graph.Out, Other: deviceID.String()},
	}, submitted.Edges)
}

func (s *EngineFailureSuite) TestUnknownReportKind() {
	_, err := s.reports.LinkedDevices(context.Background(), models.ReportKind("Vaccination"), "r")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
