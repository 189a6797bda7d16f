// Package memory is an in-process graph engine. It backs tests and local
// development and follows the same contract as the remote engines: explicit
// vertex ids, atomic vertex+edge submissions and edge-per-result traversals.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"smarttracing/internal/graph"
	"smarttracing/pkg/platform/sentinel"
)

type vertex struct {
	id    string
	label string
	props graph.PropertyMap
}

type edge struct {
	label string
	out   string
	in    string
}

// Engine keeps vertices in a map and edges in insertion order, so traversal
// results are deterministic.
type Engine struct {
	mu       sync.RWMutex
	vertices map[string]*vertex
	edges    []edge
	closed   bool
}

var _ graph.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{vertices: make(map[string]*vertex)}
}

func (e *Engine) AddVertex(ctx context.Context, spec graph.VertexSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return sentinel.ErrUnavailable
	}
	if _, exists := e.vertices[spec.ID]; exists {
		return fmt.Errorf("vertex %s: %w", spec.ID, sentinel.ErrConflict)
	}
	for _, es := range spec.Edges {
		if _, ok := e.vertices[es.Other]; !ok {
			return fmt.Errorf("%s edge endpoint %s: %w", es.Label, es.Other, sentinel.ErrNotFound)
		}
	}

	e.vertices[spec.ID] = &vertex{id: spec.ID, label: spec.Label, props: graph.ToPropertyMap(spec.Properties)}
	for _, es := range spec.Edges {
		if es.Direction == graph.In {
			e.edges = append(e.edges, edge{label: es.Label, out: es.Other, in: spec.ID})
		} else {
			e.edges = append(e.edges, edge{label: es.Label, out: spec.ID, in: es.Other})
		}
	}
	return nil
}

func (e *Engine) UpdateProperties(ctx context.Context, update graph.PropertyUpdate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, sentinel.ErrUnavailable
	}
	v, ok := e.match(update.ID, update.Label, update.Has)
	if !ok {
		return 0, nil
	}
	for k, values := range graph.ToPropertyMap(update.Properties) {
		v.props[k] = values
	}
	return 1, nil
}

func (e *Engine) VertexProperties(ctx context.Context, query graph.VertexQuery) (graph.PropertyMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, sentinel.ErrUnavailable
	}
	v, ok := e.match(query.ID, query.Label, query.Has)
	if !ok {
		return nil, fmt.Errorf("vertex %s: %w", query.ID, sentinel.ErrNotFound)
	}
	return v.props.Clone(), nil
}

func (e *Engine) Neighbors(ctx context.Context, query graph.NeighborQuery) ([]graph.Vertex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, sentinel.ErrUnavailable
	}
	if _, ok := e.match(query.From, query.FromLabel, nil); !ok {
		return nil, fmt.Errorf("vertex %s: %w", query.From, sentinel.ErrNotFound)
	}

	var out []graph.Vertex
	for _, ed := range e.edges {
		if len(query.EdgeLabels) > 0 && !slices.Contains(query.EdgeLabels, ed.label) {
			continue
		}
		var otherID string
		switch {
		case (query.Direction == graph.Out || query.Direction == graph.Both) && ed.out == query.From:
			otherID = ed.in
		case (query.Direction == graph.In || query.Direction == graph.Both) && ed.in == query.From:
			otherID = ed.out
		default:
			continue
		}
		other, ok := e.vertices[otherID]
		if !ok {
			continue
		}
		if query.TargetLabel != "" && other.label != query.TargetLabel {
			continue
		}
		out = append(out, graph.Vertex{ID: other.id, Label: other.label, Properties: other.props.Clone()})
	}
	return out, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return sentinel.ErrUnavailable
	}
	return nil
}

// Close makes every later call fail with sentinel.ErrUnavailable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// VertexCount returns the number of stored vertices with label, or of all
// vertices when label is empty.
func (e *Engine) VertexCount(label string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if label == "" {
		return len(e.vertices)
	}
	n := 0
	for _, v := range e.vertices {
		if v.label == label {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of stored edges with label, or of all edges
// when label is empty.
func (e *Engine) EdgeCount(label string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if label == "" {
		return len(e.edges)
	}
	n := 0
	for _, ed := range e.edges {
		if ed.label == label {
			n++
		}
	}
	return n
}

// Label returns the label of vertex id.
func (e *Engine) Label(id string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vertices[id]
	if !ok {
		return "", false
	}
	return v.label, true
}

// match must be called with e.mu held.
func (e *Engine) match(id, label string, has map[string]any) (*vertex, bool) {
	v, ok := e.vertices[id]
	if !ok {
		return nil, false
	}
	if label != "" && v.label != label {
		return nil, false
	}
	if !v.props.Matches(has) {
		return nil, false
	}
	return v, true
}
