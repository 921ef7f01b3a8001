package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/planward/planward/pkg/models"
)

const sessionColumns = `
	id
  , plan_text
  , phase
  , nodes
  , edges
  , baseline
  , has_changes
  , check_count
  , annotations
  , insights
  , summary
  , failure
  , created_at
  , updated_at
`

// Sessions returns all sessions, newest first.
func (p *Persistence) Sessions(ctx context.Context) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	sessions := make([]*models.Session, 0)

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		sessions = append(sessions, session)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// SessionByID returns a session by its ID, or (nil, nil) when no row
// exists.
func (p *Persistence) SessionByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return session, nil
}

// SaveSession upserts the full session document.
func (p *Persistence) SaveSession(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	session.UpdatedAt = now

	nodesJSON, err := json.Marshal(session.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(session.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	baselineJSON, err := marshalNullable(session.Baseline)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	annotationsJSON, err := json.Marshal(session.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	insightsJSON, err := json.Marshal(session.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	failureJSON, err := marshalNullable(session.Failure)
	if err != nil {
		return fmt.Errorf("failed to marshal failure: %w", err)
	}

	query := `
		INSERT INTO sessions (id, plan_text, phase, nodes, edges, baseline,
has_changes, check_count, annotations, insights, summary, failure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			plan_text = EXCLUDED.plan_text,
			phase = EXCLUDED.phase,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			baseline = EXCLUDED.baseline,
			has_changes = EXCLUDED.has_changes,
			check_count = EXCLUDED.check_count,
			annotations = EXCLUDED.annotations,
			insights = EXCLUDED.insights,
			summary = EXCLUDED.summary,
			failure = EXCLUDED.failure,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		session.ID,
		session.PlanText,
		session.Phase,
		nodesJSON,
		edgesJSON,
		baselineJSON,
		session.HasChanges,
		session.CheckCount,
		annotationsJSON,
		insightsJSON,
		session.Summary,
		failureJSON,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// DeleteSession removes a session row. Deleting a session that does
// not exist is not an error.
func (p *Persistence) DeleteSession(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteSessionsInactiveSince removes sessions last updated before the
// cutoff.
func (p *Persistence) DeleteSessionsInactiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(removed), nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session         models.Session
		nodesJSON       []byte
		edgesJSON       []byte
		baselineJSON    []byte
		annotationsJSON []byte
		insightsJSON    []byte
		failureJSON     []byte
	)

	err := row.Scan(
		&session.ID,
		&session.PlanText,
		&session.Phase,
		&nodesJSON,
		&edgesJSON,
		&baselineJSON,
		&session.HasChanges,
		&session.CheckCount,
		&annotationsJSON,
		&insightsJSON,
		&session.Summary,
		&failureJSON,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(nodesJSON, &session.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	err = json.Unmarshal(edgesJSON, &session.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	session.Baseline, err = unmarshalNullable[models.Snapshot](baselineJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline: %w", err)
	}

	if len(annotationsJSON) > 0 {
		err = json.Unmarshal(annotationsJSON, &session.Annotations)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
		}
	}

	if len(insightsJSON) > 0 {
		err = json.Unmarshal(insightsJSON, &session.Insights)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal insights: %w", err)
		}
	}

	session.Failure, err = unmarshalNullable[models.CheckFailure](failureJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure: %w", err)
	}

	return &session, nil
}

// marshalNullable maps a nil pointer to SQL NULL instead of the JSON
// literal null.
func marshalNullable[T any](value *T) (any, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func unmarshalNullable[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var value T

	err := json.Unmarshal(data, &value)
	if err != nil {
		return nil, err
	}

	return &value, nil
}
