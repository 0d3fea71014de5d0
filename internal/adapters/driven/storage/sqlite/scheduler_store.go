package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// LastRunTime returns when the pipeline last started. The run-time table is
// append-only, so the latest start is the maximum recorded value.
func (s *schedulerStore) LastRunTime(ctx context.Context, pipelineID string) (time.Time, error) {
	var last sql.NullInt64
	err := s.store.db.QueryRowContext(ctx, `
		SELECT MAX(run_time) FROM pipeline_run_times WHERE pipeline_id = ?
	`, pipelineID).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying last run time: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return time.Unix(last.Int64, 0), nil
}

// RecordRunTime stores a pipeline start time.
func (s *schedulerStore) RecordRunTime(ctx context.Context, pipelineID string, at time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_run_times (pipeline_id, run_time) VALUES (?, ?)
	`, pipelineID, at.Unix())
	if err != nil {
		return fmt.Errorf("recording run time: %w", err)
	}
	return nil
}

// RecordResult logs a pipeline execution result.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.PipelineRun) error {
	if result == nil {
		return fmt.Errorf("%w: nil pipeline run", domain.ErrConfigInvalid)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (pipeline_id, started_at, ended_at, success, error, records)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.PipelineID,
		result.StartedAt.Format(time.RFC3339),
		result.EndedAt.Format(time.RFC3339),
		boolToInt(result.Success),
		nullString(result.Error),
		result.Records)

	if err != nil {
		return fmt.Errorf("recording pipeline run: %w", err)
	}
	return nil
}

// History returns recent results for a pipeline, most recent first.
func (s *schedulerStore) History(ctx context.Context, pipelineID string, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT pipeline_id, started_at, ended_at, success, error, records
		FROM pipeline_runs
		WHERE pipeline_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, pipelineID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pipeline history: %w", err)
	}
	defer rows.Close()

	var results []domain.PipelineRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanPipelineRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pipeline history: %w", err)
	}

	return results, nil
}

// PruneHistory removes old results beyond the retention limit, keeping the
// most recent 'keep' results per pipeline. Superseded run times go with
// them; only the latest start per pipeline matters for due checks.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM pipeline_runs
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY pipeline_id ORDER BY started_at DESC) as rn
				FROM pipeline_runs
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning pipeline history: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		DELETE FROM pipeline_run_times
		WHERE run_time NOT IN (
			SELECT MAX(run_time) FROM pipeline_run_times AS newest
			WHERE newest.pipeline_id = pipeline_run_times.pipeline_id
		)
	`)
	if err != nil {
		return fmt.Errorf("pruning run times: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanPipelineRun scans a pipeline run from *sql.Rows.
func scanPipelineRun(rows *sql.Rows) (*domain.PipelineRun, error) {
	var result domain.PipelineRun
	var startedAt, endedAt string
	var success int
	var errMsg sql.NullString

	if err := rows.Scan(&result.PipelineID, &startedAt, &endedAt,
		&success, &errMsg, &result.Records); err != nil {
		return nil, fmt.Errorf("scanning pipeline run: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		result.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, endedAt); err == nil {
		result.EndedAt = t
	}
	result.Success = success == 1
	if errMsg.Valid {
		result.Error = errMsg.String
	}

	return &result, nil
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
