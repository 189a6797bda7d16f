// Package graph is the only layer that talks to the graph engine.
//
// DAOs describe what they want with the engine-neutral shapes in this file
// (VertexSpec, PropertyUpdate, VertexQuery, NeighborQuery) and submit them
// through a Client, which translates every engine failure into the domain
// error taxonomy in one place.
package graph

//go:generate mockgen -source=graph.go -destination=mocks/mocks.go -package=mocks Engine

import (
	"context"
	"fmt"
)

// Direction of an edge relative to the vertex a traversal starts from.
type Direction int

const (
	// Out follows edges leaving the start vertex.
	Out Direction = iota
	// In follows edges arriving at the start vertex.
	In
	// Both follows edges in either direction.
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Existence selects what a property update does when no vertex matches.
type Existence int

const (
	// MayBeAbsent treats an update of a missing vertex as a no-op.
	MayBeAbsent Existence = iota
	// MustExist fails an update of a missing vertex with an invalid id error.
	MustExist
)

// Vertex is a vertex as returned by reads.
type Vertex struct {
	ID         string
	Label      string
	Properties PropertyMap
}

// EdgeSpec attaches an edge between a new vertex and an existing one.
// Out means new vertex -> Other, In means Other -> new vertex.
type EdgeSpec struct {
	Label     string
	Direction Direction
	Other     string
}

// VertexSpec creates one vertex and its edges in a single engine submission.
// If any edge endpoint is missing the whole submission fails and nothing is
// written.
type VertexSpec struct {
	Label      string
	ID         string
	Properties map[string]any
	Edges      []EdgeSpec
}

// NewVertex starts a VertexSpec with an explicit, caller-generated id.
func NewVertex(label, id string) *VertexSpec {
	return &VertexSpec{Label: label, ID: id, Properties: make(map[string]any)}
}

// Set writes a property. Absent optionals must be skipped by the caller, a nil
// value fails Validate.
func (v *VertexSpec) Set(key string, value any) *VertexSpec {
	v.Properties[key] = value
	return v
}

// SetString writes value only when it is non-empty.
func (v *VertexSpec) SetString(key, value string) *VertexSpec {
	if value != "" {
		v.Properties[key] = value
	}
	return v
}

// SetFloat writes *value only when value is non-nil.
func (v *VertexSpec) SetFloat(key string, value *float64) *VertexSpec {
	if value != nil {
		v.Properties[key] = *value
	}
	return v
}

// EdgeFrom adds an edge other -> new vertex.
func (v *VertexSpec) EdgeFrom(label, other string) *VertexSpec {
	v.Edges = append(v.Edges, EdgeSpec{Label: label, Direction: In, Other: other})
	return v
}

// EdgeTo adds an edge new vertex -> other.
func (v *VertexSpec) EdgeTo(label, other string) *VertexSpec {
	v.Edges = append(v.Edges, EdgeSpec{Label: label, Direction: Out, Other: other})
	return v
}

// Validate checks the spec before it reaches an engine.
func (v VertexSpec) Validate() error {
	if v.Label == "" {
		return fmt.Errorf("vertex label is required")
	}
	if v.ID == "" {
		return fmt.Errorf("vertex id is required")
	}
	if err := validateProperties(v.Properties); err != nil {
		return err
	}
	for _, e := range v.Edges {
		if e.Label == "" || e.Other == "" {
			return fmt.Errorf("edge label and endpoint are required")
		}
		if e.Direction == Both {
			return fmt.Errorf("edge %s must be directed", e.Label)
		}
	}
	return nil
}

// PropertyUpdate sets properties on the vertices matching ID, Label and Has.
type PropertyUpdate struct {
	ID         string
	Label      string
	Has        map[string]any
	Properties map[string]any
	Existence  Existence
}

// Validate checks the update before it reaches an engine.
func (u PropertyUpdate) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("vertex id is required")
	}
	if len(u.Properties) == 0 {
		return fmt.Errorf("at least one property is required")
	}
	return validateProperties(u.Properties)
}

// VertexQuery selects a single vertex by id, optionally constrained by label
// and property equality filters such as deleted == false.
type VertexQuery struct {
	ID    string
	Label string
	Has   map[string]any
}

// NeighborQuery walks edges with the given labels from one vertex. An empty
// EdgeLabels matches every edge; an empty TargetLabel matches every vertex.
// With Both, a neighbor connected by two edges is returned twice.
type NeighborQuery struct {
	From        string
	FromLabel   string
	EdgeLabels  []string
	Direction   Direction
	TargetLabel string
}

// Engine is the port implemented by each graph backend. Implementations must
// be safe for concurrent use.
type Engine interface {
	// AddVertex writes the vertex and its edges atomically. A missing edge
	// endpoint fails with an error wrapping sentinel.ErrNotFound, an existing
	// id with sentinel.ErrConflict.
	AddVertex(ctx context.Context, spec VertexSpec) error
	// UpdateProperties sets properties on the matching vertex and reports how
	// many vertices matched (0 or 1).
	UpdateProperties(ctx context.Context, update PropertyUpdate) (int, error)
	// VertexProperties returns the property map of the matching vertex or an
	// error wrapping sentinel.ErrNotFound.
	VertexProperties(ctx context.Context, query VertexQuery) (PropertyMap, error)
	// Neighbors returns the vertices reached by the query, one per edge walked.
	Neighbors(ctx context.Context, query NeighborQuery) ([]Vertex, error)
	// Ping performs a trivial round trip.
	Ping(ctx context.Context) error
	Close() error
}

func validateProperties(props map[string]any) error {
	for k, v := range props {
		if k == "" {
			return fmt.Errorf("property name is required")
		}
		if v == nil {
			return fmt.Errorf("property %s: nil values are not written", k)
		}
		if s, ok := v.([]string); ok && len(s) == 0 {
			return fmt.Errorf("property %s: empty lists are not written", k)
		}
	}
	return nil
}
