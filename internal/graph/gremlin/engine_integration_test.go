//go:build integration

package gremlin_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"smarttracing/internal/graph/graphtest"
	"smarttracing/internal/graph/gremlin"
	"smarttracing/pkg/testutil/containers"
)

type GremlinEngineSuite struct {
	graphtest.ContractSuite
	engine *gremlin.Engine
}

func TestGremlinEngineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(GremlinEngineSuite))
}

func (s *GremlinEngineSuite) SetupSuite() {
	server := containers.GetManager().GetGremlin(s.T())
	engine, err := gremlin.Open(server.URL, "g")
	s.Require().NoError(err)
	s.engine = engine
	s.Engine = engine
}

func (s *GremlinEngineSuite) TearDownSuite() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
}
