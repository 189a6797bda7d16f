// Package gremlin implements graph.Engine against a Gremlin Server (TinkerPop
// 3.7) over the websocket driver.
//
// The server must accept caller supplied string vertex ids; for TinkerGraph
// that means gremlin.tinkergraph.vertexIdManager=ANY.
package gremlin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gremlingo "github.com/apache/tinkerpop/gremlin-go/v3/driver"

	"smarttracing/internal/graph"
	"smarttracing/pkg/platform/sentinel"
)

const (
	keyID    = "id"
	keyLabel = "label"
	keyProps = "props"
)

// Engine submits one traversal per operation. Vertex creation folds the
// endpoint checks, the vertex and its edges into a single traversal so a
// missing endpoint writes nothing.
type Engine struct {
	conn *gremlingo.DriverRemoteConnection
	g    *gremlingo.GraphTraversalSource
}

var _ graph.Engine = (*Engine)(nil)

// Open connects to url, e.g. ws://localhost:8182/gremlin.
func Open(url, traversalSource string) (*Engine, error) {
	conn, err := gremlingo.NewDriverRemoteConnection(url, func(settings *gremlingo.DriverRemoteConnectionSettings) {
		if traversalSource != "" {
			settings.TraversalSource = traversalSource
		}
		settings.LogVerbosity = gremlingo.Warning
	})
	if err != nil {
		return nil, fmt.Errorf("connect to gremlin server %s: %w", url, err)
	}
	return &Engine{
		conn: conn,
		g:    gremlingo.Traversal_().WithRemote(conn),
	}, nil
}

func (e *Engine) AddVertex(ctx context.Context, spec graph.VertexSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var t *gremlingo.GraphTraversal
	if len(spec.Edges) == 0 {
		t = e.g.AddV(spec.Label)
	} else {
		t = e.g.Inject(0)
		for _, edge := range spec.Edges {
			t = t.Where(gremlingo.T__.V(edge.Other))
		}
		t = t.AddV(spec.Label)
	}
	t = t.Property(gremlingo.T.Id, spec.ID)
	for key, value := range spec.Properties {
		t = setProperty(t, key, value)
	}
	for _, edge := range spec.Edges {
		if edge.Direction == graph.In {
			t = t.SideEffect(gremlingo.T__.AddE(edge.Label).From(gremlingo.T__.V(edge.Other)))
		} else {
			t = t.SideEffect(gremlingo.T__.AddE(edge.Label).To(gremlingo.T__.V(edge.Other)))
		}
	}

	results, err := await(ctx, t.Id().ToList)
	if err != nil {
		return mapError(err)
	}
	if len(results) == 0 {
		return fmt.Errorf("edge endpoint of %s %s: %w", spec.Label, spec.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (e *Engine) UpdateProperties(ctx context.Context, update graph.PropertyUpdate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t := e.match(update.ID, update.Label, update.Has)
	for key, value := range update.Properties {
		if _, multi := value.([]string); multi {
			t = t.SideEffect(gremlingo.T__.Properties(key).Drop())
		}
		t = setProperty(t, key, value)
	}
	result, err := await(ctx, t.Count().Next)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := result.GetInt()
	if err != nil {
		return 0, fmt.Errorf("decode update count: %w", err)
	}
	return n, nil
}

func (e *Engine) VertexProperties(ctx context.Context, query graph.VertexQuery) (graph.PropertyMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := await(ctx, e.match(query.ID, query.Label, query.Has).ValueMap().ToList)
	if err != nil {
		return nil, mapError(err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("vertex %s: %w", query.ID, sentinel.ErrNotFound)
	}
	return toPropertyMap(results[0].GetInterface())
}

func (e *Engine) Neighbors(ctx context.Context, query graph.NeighborQuery) ([]graph.Vertex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := e.match(query.From, query.FromLabel, nil)
	labels := make([]interface{}, len(query.EdgeLabels))
	for i, l := range query.EdgeLabels {
		labels[i] = l
	}
	switch query.Direction {
	case graph.In:
		t = t.In(labels...)
	case graph.Both:
		t = t.Both(labels...)
	default:
		t = t.Out(labels...)
	}
	if query.TargetLabel != "" {
		t = t.HasLabel(query.TargetLabel)
	}
	results, err := await(ctx, t.Project(keyID, keyLabel, keyProps).
		By(gremlingo.T.Id).
		By(gremlingo.T.Label).
		By(gremlingo.T__.ValueMap()).
		ToList)
	if err != nil {
		return nil, mapError(err)
	}

	if len(results) == 0 {
		exists, err := e.exists(ctx, query.From, query.FromLabel)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("vertex %s: %w", query.From, sentinel.ErrNotFound)
		}
		return nil, nil
	}

	out := make([]graph.Vertex, 0, len(results))
	for _, r := range results {
		v, err := toVertex(r.GetInterface())
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := await(ctx, e.g.Inject(0).Next); err != nil {
		return mapError(err)
	}
	return nil
}

func (e *Engine) Close() error {
	e.conn.Close()
	return nil
}

func (e *Engine) match(id, label string, has map[string]any) *gremlingo.GraphTraversal {
	t := e.g.V(id)
	if label != "" {
		t = t.HasLabel(label)
	}
	for key, value := range has {
		t = t.Has(key, value)
	}
	return t
}

func (e *Engine) exists(ctx context.Context, id, label string) (bool, error) {
	result, err := await(ctx, e.match(id, label, nil).Count().Next)
	if err != nil {
		return false, mapError(err)
	}
	n, err := result.GetInt()
	if err != nil {
		return false, fmt.Errorf("decode vertex count: %w", err)
	}
	return n > 0, nil
}

// await runs a blocking driver call and gives up when ctx ends. The driver
// has no context support; an abandoned call finishes in its goroutine.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := call()
		done <- outcome{value: value, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.value, o.err
	}
}

func setProperty(t *gremlingo.GraphTraversal, key string, value any) *gremlingo.GraphTraversal {
	if values, ok := value.([]string); ok {
		for _, v := range values {
			t = t.Property(gremlingo.Cardinality.List, key, v)
		}
		return t
	}
	return t.Property(gremlingo.Cardinality.Single, key, value)
}

func toVertex(raw interface{}) (graph.Vertex, error) {
	m, ok := raw.(map[interface{}]interface{})
	if !ok {
		return graph.Vertex{}, fmt.Errorf("unexpected projection %T", raw)
	}
	props, err := toPropertyMap(m[keyProps])
	if err != nil {
		return graph.Vertex{}, err
	}
	return graph.Vertex{
		ID:         fmt.Sprint(m[keyID]),
		Label:      fmt.Sprint(m[keyLabel]),
		Properties: props,
	}, nil
}

func toPropertyMap(raw interface{}) (graph.PropertyMap, error) {
	m, ok := raw.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected value map %T", raw)
	}
	out := make(graph.PropertyMap, len(m))
	for k, v := range m {
		key, ok := k.(string)
		if !ok {
			continue
		}
		switch values := v.(type) {
		case []interface{}:
			out[key] = values
		default:
			out[key] = []any{values}
		}
	}
	return out, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", err, sentinel.ErrUnavailable)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%s: %w", msg, sentinel.ErrConflict)
	case strings.Contains(msg, "connection"):
		return fmt.Errorf("%s: %w", msg, sentinel.ErrUnavailable)
	default:
		return err
	}
}
