// Package graphtest holds the behavioral contract every graph.Engine must
// satisfy. Engine packages run it against their own backend.
package graphtest

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"smarttracing/internal/graph"
	"smarttracing/pkg/platform/sentinel"
)

// ContractSuite exercises an Engine through its public methods only. Ids are
// random per test so a shared backend needs no cleanup.
type ContractSuite struct {
	suite.Suite
	Engine graph.Engine
}

func (s *ContractSuite) id() string {
	return uuid.NewString()
}

func (s *ContractSuite) add(spec *graph.VertexSpec) {
	s.Require().NoError(s.Engine.AddVertex(context.Background(), *spec))
}

func (s *ContractSuite) TestRoundTripsProperties() {
	ctx := context.Background()
	id := s.id()
	s.add(graph.NewVertex("Report", id).
		Set("createdAt", "2024-03-01T10:30:00Z").
		Set("verified", true).
		Set("latitude", 45.5).
		Set("symptoms", []string{"COUGH", "FEVER"}))

	props, err := s.Engine.VertexProperties(ctx, graph.VertexQuery{ID: id, Label: "Report"})
	s.Require().NoError(err)

	d := graph.NewDecoder("Report", id, props)
	s.Equal("2024-03-01T10:30:00Z", d.String("createdAt"))
	s.True(d.Bool("verified"))
	s.Equal(45.5, *d.OptionalFloat("latitude"))
	s.ElementsMatch([]string{"COUGH", "FEVER"}, d.Strings("symptoms"))
	s.Require().NoError(d.Err())
	s.False(props.Has("longitude"))
}

func (s *ContractSuite) TestMissingEndpointWritesNothing() {
	ctx := context.Background()
	id := s.id()

	err := s.Engine.AddVertex(ctx, *graph.NewVertex("Site", id).SetString("name", "Default").EdgeFrom("HAS", s.id()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.Engine.VertexProperties(ctx, graph.VertexQuery{ID: id})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContractSuite) TestDuplicateID() {
	id := s.id()
	s.add(graph.NewVertex("Device", id))

	err := s.Engine.AddVertex(context.Background(), *graph.NewVertex("Device", id))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ContractSuite) TestUpdateProperties() {
	ctx := context.Background()
	id := s.id()
	s.add(graph.NewVertex("Organization", id).SetString("name", "Acme").Set("deleted", false))

	n, err := s.Engine.UpdateProperties(ctx, graph.PropertyUpdate{
		ID:         id,
		Label:      "Organization",
		Has:        map[string]any{"deleted": false},
		Properties: map[string]any{"name": "Acme Health", "verified": true},
	})
	s.Require().NoError(err)
	s.Equal(1, n)

	props, err := s.Engine.VertexProperties(ctx, graph.VertexQuery{ID: id})
	s.Require().NoError(err)
	s.Equal([]any{"Acme Health"}, props["name"])
	s.Equal([]any{true}, props["verified"])

	n, err = s.Engine.UpdateProperties(ctx, graph.PropertyUpdate{
		ID:         id,
		Label:      "Site",
		Properties: map[string]any{"name": "x"},
	})
	s.Require().NoError(err)
	s.Zero(n)

	n, err = s.Engine.UpdateProperties(ctx, graph.PropertyUpdate{
		ID:         s.id(),
		Properties: map[string]any{"name": "x"},
	})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ContractSuite) TestFilteredRead() {
	ctx := context.Background()
	id := s.id()
	s.add(graph.NewVertex("Organization", id).SetString("name", "Acme").Set("deleted", true))

	_, err := s.Engine.VertexProperties(ctx, graph.VertexQuery{ID: id, Has: map[string]any{"deleted": false}})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContractSuite) TestNeighbors() {
	ctx := context.Background()
	org, siteA, siteB, dev, rep := s.id(), s.id(), s.id(), s.id(), s.id()
	s.add(graph.NewVertex("Organization", org).SetString("name", "Acme"))
	s.add(graph.NewVertex("Site", siteA).SetString("name", "A").EdgeFrom("HAS", org))
	s.add(graph.NewVertex("Site", siteB).SetString("name", "B").EdgeFrom("HAS", org))
	s.add(graph.NewVertex("Device", dev))
	s.add(graph.NewVertex("Report", rep).EdgeTo("REPORT_FOR", dev))

	sites, err := s.Engine.Neighbors(ctx, graph.NeighborQuery{
		From:        org,
		FromLabel:   "Organization",
		EdgeLabels:  []string{"HAS"},
		Direction:   graph.Out,
		TargetLabel: "Site",
	})
	s.Require().NoError(err)
	s.Require().Len(sites, 2)
	names := []any{sites[0].Properties["name"][0], sites[1].Properties["name"][0]}
	s.ElementsMatch([]any{"A", "B"}, names)
	s.Equal("Site", sites[0].Label)

	reports, err := s.Engine.Neighbors(ctx, graph.NeighborQuery{From: dev, EdgeLabels: []string{"REPORT_FOR"}, Direction: graph.In})
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Equal(rep, reports[0].ID)

	none, err := s.Engine.Neighbors(ctx, graph.NeighborQuery{From: dev, Direction: graph.Out})
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.Engine.Neighbors(ctx, graph.NeighborQuery{From: s.id(), Direction: graph.Out})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ContractSuite) TestPing() {
	s.NoError(s.Engine.Ping(context.Background()))
}
