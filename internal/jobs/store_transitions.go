package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Claim moves a pending job to in progress. Exactly one caller succeeds for a
// given job; everyone else gets ErrInvalidTransition.
func (s *Store) Claim(ctx context.Context, id string) (*Job, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusInProgress, timestamp(time.Now()), id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}
	return s.GetByID(ctx, id)
}

// Complete marks an in-progress job done and records its committed outputs.
// Completing a job in any other state is rejected, so terminal states stay
// terminal.
func (s *Store) Complete(ctx context.Context, id string, outputs map[OutputKind]string) error {
	encoded, err := encodeOutputs(outputs)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, outputs_json = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusDone, encoded, timestamp(time.Now()), id, StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// CompleteFetch marks a fetch job done and stamps the committed audio ref on
// its source record in the same transaction, so readers never observe a done
// fetch whose source still lacks audio.
func (s *Store) CompleteFetch(ctx context.Context, id string, outputs map[OutputKind]string, audioRef string) error {
	encoded, err := encodeOutputs(outputs)
	if err != nil {
		return err
	}
	now := timestamp(time.Now())

	var affected int64
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, outputs_json = ?, error_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusDone, encoded, now, id, StatusInProgress)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE sources SET output_ref = ?, updated_at = ?
                 WHERE id = (SELECT source_id FROM jobs WHERE id = ?)`,
				audioRef, now, id); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("complete fetch job: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// Fail marks an in-progress job errored with the given message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusError, message, timestamp(time.Now()), id, StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

// FailStale errors every in-progress job created at or before cutoff in a
// single guarded update. Jobs that finish between candidate listing and this
// call are left alone because the status guard no longer matches them.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE status = ? AND created_at <= ?`,
		StatusError, message, timestamp(time.Now()), StatusInProgress, timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// RetryErrored resets an errored job back to pending so the workflow picks it
// up again. Jobs in any other state are rejected.
func (s *Store) RetryErrored(ctx context.Context, id string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, outputs_json = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, timestamp(time.Now()), id, StatusError,
	)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	return s.requireTransition(ctx, res, id)
}

func (s *Store) requireTransition(ctx context.Context, res interface{ RowsAffected() (int64, error) }, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func encodeOutputs(outputs map[OutputKind]string) (string, error) {
	if len(outputs) == 0 {
		return "", fmt.Errorf("jobs: completion requires at least one output")
	}
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return "", fmt.Errorf("encode outputs: %w", err)
	}
	return string(encoded), nil
}
