// Package postgres implements graph.Engine on two PostgreSQL tables: vertices
// with a JSONB property bag and edges with foreign keys to both endpoints.
//
// Properties are stored as a JSON object of arrays, the same shape as
// graph.PropertyMap, so single and multi-valued properties round-trip alike.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/lib/pq"

	"smarttracing/internal/graph"
	"smarttracing/pkg/platform/sentinel"
	"smarttracing/pkg/platform/tx"
)

const driverName = "pgx"

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

//go:embed schema.sql
var schema string

type Engine struct {
	db *sql.DB
}

var _ graph.Engine = (*Engine)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Engine, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	e := New(db)
	if err := e.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// New wraps an open database handle. Call EnsureSchema before first use on a
// fresh database.
func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) EnsureSchema(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply graph schema: %w", err)
	}
	return nil
}

func (e *Engine) AddVertex(ctx context.Context, spec graph.VertexSpec) error {
	props, err := encode(graph.ToPropertyMap(spec.Properties))
	if err != nil {
		return err
	}

	err = tx.Run(ctx, e.db, func(t *sql.Tx) error {
		if _, err := t.ExecContext(ctx,
			`INSERT INTO vertices (id, label, properties) VALUES ($1, $2, $3::jsonb)`,
			spec.ID, spec.Label, props,
		); err != nil {
			return fmt.Errorf("insert vertex %s: %w", spec.ID, err)
		}
		for _, edge := range spec.Edges {
			out, in := spec.ID, edge.Other
			if edge.Direction == graph.In {
				out, in = edge.Other, spec.ID
			}
			if _, err := t.ExecContext(ctx,
				`INSERT INTO edges (label, out_id, in_id) VALUES ($1, $2, $3)`,
				edge.Label, out, in,
			); err != nil {
				return fmt.Errorf("insert %s edge to %s: %w", edge.Label, edge.Other, err)
			}
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (e *Engine) UpdateProperties(ctx context.Context, update graph.PropertyUpdate) (int, error) {
	props, err := encode(graph.ToPropertyMap(update.Properties))
	if err != nil {
		return 0, err
	}
	filter, err := encode(graph.ToPropertyMap(update.Has))
	if err != nil {
		return 0, err
	}
	res, err := e.db.ExecContext(ctx, `
		UPDATE vertices SET properties = properties || $3::jsonb
		WHERE id = $1 AND ($2 = '' OR label = $2) AND properties @> $4::jsonb
	`, update.ID, update.Label, props, filter)
	if err != nil {
		return 0, mapError(fmt.Errorf("update vertex %s: %w", update.ID, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (e *Engine) VertexProperties(ctx context.Context, query graph.VertexQuery) (graph.PropertyMap, error) {
	filter, err := encode(graph.ToPropertyMap(query.Has))
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = e.db.QueryRowContext(ctx, `
		SELECT properties FROM vertices
		WHERE id = $1 AND ($2 = '' OR label = $2) AND properties @> $3::jsonb
	`, query.ID, query.Label, filter).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vertex %s: %w", query.ID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, mapError(fmt.Errorf("select vertex %s: %w", query.ID, err))
	}
	return decode(raw)
}

func (e *Engine) Neighbors(ctx context.Context, query graph.NeighborQuery) ([]graph.Vertex, error) {
	exists, err := e.exists(ctx, query.From, query.FromLabel)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("vertex %s: %w", query.From, sentinel.ErrNotFound)
	}

	followOut := query.Direction == graph.Out || query.Direction == graph.Both
	followIn := query.Direction == graph.In || query.Direction == graph.Both
	labels := query.EdgeLabels
	if labels == nil {
		labels = []string{}
	}
	rows, err := e.db.QueryContext(ctx, `
		SELECT v.id, v.label, v.properties
		FROM edges e
		JOIN vertices v ON v.id = CASE WHEN e.out_id = $1 THEN e.in_id ELSE e.out_id END
		WHERE (($2 AND e.out_id = $1) OR ($3 AND e.in_id = $1))
		  AND (cardinality($4::text[]) = 0 OR e.label = ANY($4::text[]))
		  AND ($5 = '' OR v.label = $5)
		ORDER BY e.seq
	`, query.From, followOut, followIn, pq.Array(labels), query.TargetLabel)
	if err != nil {
		return nil, mapError(fmt.Errorf("traverse from %s: %w", query.From, err))
	}
	defer rows.Close()

	var out []graph.Vertex
	for rows.Next() {
		var (
			v   graph.Vertex
			raw []byte
		)
		if err := rows.Scan(&v.ID, &v.Label, &raw); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		if v.Properties, err = decode(raw); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(fmt.Errorf("iterate neighbors: %w", err))
	}
	return out, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

func (e *Engine) exists(ctx context.Context, id, label string) (bool, error) {
	var found bool
	err := e.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vertices WHERE id = $1 AND ($2 = '' OR label = $2))`,
		id, label,
	).Scan(&found)
	if err != nil {
		return false, mapError(fmt.Errorf("lookup vertex %s: %w", id, err))
	}
	return found, nil
}

func encode(props graph.PropertyMap) ([]byte, error) {
	if props == nil {
		props = graph.PropertyMap{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return b, nil
}

func decode(raw []byte) (graph.PropertyMap, error) {
	props := graph.PropertyMap{}
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", err, sentinel.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", err, sentinel.ErrNotFound)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", err, sentinel.ErrUnavailable)
	}
	return err
}
