// Package store persists diagrams in Postgres: a diagrams registry, an
// append-only mutation log, and versioned document snapshots. Snapshots
// are the source of truth for loads; the mutation log exists for audit
// and replay tooling.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridwire/gridwire/internal/diagram"
	"github.com/gridwire/gridwire/internal/doc"
	"github.com/gridwire/gridwire/internal/session"
	"github.com/gridwire/gridwire/internal/typeid"
)

var ErrNotFound = errors.New("diagram not found")

// Store is the Postgres-backed persistence layer. It implements the
// session package's PersistenceGateway, DiagramLoader and SnapshotSaver
// interfaces.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// DiagramInfo is the registry row for one diagram.
type DiagramInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// CreateDiagram registers a new diagram and seeds its first snapshot
// with an empty document, so the first session open always finds one.
func (s *Store) CreateDiagram(ctx context.Context, name string) (*DiagramInfo, error) {
	diagramID := typeid.NewDiagramID()

	var info DiagramInfo
	err := s.pool.QueryRow(ctx,
		`INSERT INTO diagrams (id, name)
		 VALUES ($1, $2)
		 RETURNING id, name, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`,
		diagramID, name,
	).Scan(&info.ID, &info.Name, &info.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}

	docJSON, err := json.Marshal(doc.NewEmptyDocument(diagramID))
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO diagram_snapshots (id, diagram_id, version, document)
		 VALUES ($1, $2, 1, $3)`,
		typeid.NewSnapshotID(), diagramID, docJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("seed initial snapshot: %w", err)
	}

	return &info, nil
}

// GetDiagram looks up the registry row for a diagram.
func (s *Store) GetDiagram(ctx context.Context, diagramID string) (*DiagramInfo, error) {
	var info DiagramInfo
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		 FROM diagrams WHERE id = $1`,
		diagramID,
	).Scan(&info.ID, &info.Name, &info.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return &info, nil
}

// ListDiagrams returns all registered diagrams, newest first.
func (s *Store) ListDiagrams(ctx context.Context) ([]DiagramInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		 FROM diagrams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	var infos []DiagramInfo
	for rows.Next() {
		var info DiagramInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagram row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// ExecuteMutation appends one command to the mutation log. Implements
// session.PersistenceGateway.
func (s *Store) ExecuteMutation(ctx context.Context, cmd session.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO diagram_ops (id, diagram_id, op_type, payload)
		 VALUES ($1, $2, $3, $4)`,
		cmd.ID, cmd.DiagramID, cmd.Type, payload,
	)
	if err != nil {
		return fmt.Errorf("append mutation %s: %w", cmd.Type, err)
	}
	return nil
}

// Load fetches the latest snapshot and builds the live aggregate.
// Implements session.DiagramLoader.
func (s *Store) Load(ctx context.Context, diagramID string) (*diagram.Diagram, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM diagram_snapshots
		 WHERE diagram_id = $1
		 ORDER BY version DESC LIMIT 1`,
		diagramID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	var document doc.Document
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: snapshot for %s: %v", doc.ErrLoad, diagramID, err)
	}
	return document.ToDiagram()
}

// SaveSnapshot writes the document as the next snapshot version.
// Implements session.SnapshotSaver.
func (s *Store) SaveSnapshot(ctx context.Context, document *doc.Document) error {
	docJSON, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	var version int32
	err = s.pool.QueryRow(ctx,
		`SELECT version FROM diagram_snapshots
		 WHERE diagram_id = $1
		 ORDER BY version DESC LIMIT 1`,
		document.ID,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get current snapshot version: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO diagram_snapshots (id, diagram_id, version, document)
		 VALUES ($1, $2, $3, $4)`,
		typeid.NewSnapshotID(), document.ID, version+1, docJSON,
	)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}
