package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"smarttracing/internal/platform/metrics"
	dErrors "smarttracing/pkg/domain-errors"
	"smarttracing/pkg/platform/sentinel"
)

const tracerName = "smarttracing/internal/graph"

// Mutation is a write submitted through Client.Execute: a *VertexSpec,
// VertexSpec or PropertyUpdate.
type Mutation interface {
	kind() Kind
}

func (VertexSpec) kind() Kind     { return KindCreate }
func (PropertyUpdate) kind() Kind { return KindUpdate }

// Client exposes the graph access primitives to DAOs. It is safe for
// concurrent use when the underlying Engine is.
type Client struct {
	engine  Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	timeout time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithTimeout bounds every engine round trip. Zero leaves deadlines to the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient wraps engine.
func NewClient(engine Engine, opts ...Option) (*Client, error) {
	if engine == nil {
		return nil, fmt.Errorf("graph engine is required")
	}
	c := &Client{
		engine: engine,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute submits a mutation and returns the number of vertices it touched.
// Failures come back translated: creation failures as entity creation errors,
// update failures as update errors. An update with MustExist that matches
// nothing fails with an invalid id error.
func (c *Client) Execute(ctx context.Context, desc string, m Mutation) (int, error) {
	switch mut := m.(type) {
	case *VertexSpec:
		return c.Execute(ctx, desc, *mut)
	case VertexSpec:
		err := c.observe(ctx, KindCreate, desc, func(ctx context.Context) error {
			if err := mut.Validate(); err != nil {
				return err
			}
			return c.engine.AddVertex(ctx, mut)
		})
		if err != nil {
			return 0, err
		}
		if c.metrics != nil {
			c.metrics.IncrementEntitiesCreated(mut.Label)
		}
		return 1, nil
	case PropertyUpdate:
		var matched int
		err := c.observe(ctx, KindUpdate, desc, func(ctx context.Context) error {
			if err := mut.Validate(); err != nil {
				return err
			}
			n, err := c.engine.UpdateProperties(ctx, mut)
			matched = n
			return err
		})
		if err != nil {
			return 0, err
		}
		if matched == 0 && mut.Existence == MustExist {
			return 0, dErrors.InvalidID(mut.ID)
		}
		return matched, nil
	default:
		return 0, Translate(KindUpdate, desc, fmt.Errorf("unsupported mutation %T", m))
	}
}

// GetIfPresent looks up a single vertex. A traversal that yields nothing is
// reported as ok == false, never as an error.
func (c *Client) GetIfPresent(ctx context.Context, desc string, query VertexQuery) (Vertex, bool, error) {
	props, ok, err := c.PropertyMapOf(ctx, desc, query)
	if err != nil || !ok {
		return Vertex{}, false, err
	}
	return Vertex{ID: query.ID, Label: query.Label, Properties: props}, true, nil
}

// PropertyMapOf returns the property map of the vertex matching query, or
// ok == false when no vertex matches.
func (c *Client) PropertyMapOf(ctx context.Context, desc string, query VertexQuery) (PropertyMap, bool, error) {
	var props PropertyMap
	absent := false
	err := c.observe(ctx, KindQuery, desc, func(ctx context.Context) error {
		p, err := c.engine.VertexProperties(ctx, query)
		if errors.Is(err, sentinel.ErrNotFound) {
			absent = true
			return nil
		}
		props = p
		return err
	})
	if err != nil || absent {
		return nil, false, err
	}
	return props, true, nil
}

// Neighbors runs an edge traversal. A start vertex that does not exist yields
// an empty result.
func (c *Client) Neighbors(ctx context.Context, desc string, query NeighborQuery) ([]Vertex, error) {
	var out []Vertex
	err := c.observe(ctx, KindQuery, desc, func(ctx context.Context) error {
		vs, err := c.engine.Neighbors(ctx, query)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		out = vs
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the engine answers a trivial traversal.
func (c *Client) Ping(ctx context.Context) error {
	return c.observe(ctx, KindQuery, "ping", c.engine.Ping)
}

// Close releases the engine.
func (c *Client) Close() error {
	return c.engine.Close()
}

func (c *Client) observe(ctx context.Context, kind Kind, desc string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "graph."+kind.String(), trace.WithAttributes(
		attribute.String("graph.operation", desc),
	))
	defer span.End()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if c.metrics != nil {
		c.metrics.ObserveGraphOperation(kind.String(), start, err)
	}
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, desc)
	c.logger.DebugContext(ctx, "graph operation failed",
		"kind", kind.String(),
		"operation", desc,
		"error", err,
	)
	return Translate(kind, desc, err)
}
