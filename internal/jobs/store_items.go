package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSource inserts a source record awaiting audio.
func (s *Store) NewSource(ctx context.Context, artist, title string) (*Source, error) {
	now := timestamp(time.Now())
	id := uuid.NewString()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sources (id, artist, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, artist, title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	return s.GetSource(ctx, id)
}

// GetSource fetches a source record by identifier.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, artist, title, output_ref, created_at, updated_at FROM sources WHERE id = ?`, id)

	var (
		src        Source
		outputRef  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&src.ID, &src.Artist, &src.Title, &outputRef, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	src.OutputRef = outputRef.String
	if created, err := parseTimeString(createdRaw); err == nil {
		src.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		src.UpdatedAt = updated
	}
	return &src, nil
}

// SetSourceOutput records the committed audio ref on a source record.
// The fetch runner uses CompleteFetch instead so job and source update in one
// transaction; this is for direct uploads recorded by the submission path.
func (s *Store) SetSourceOutput(ctx context.Context, id, ref string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sources SET output_ref = ?, updated_at = ? WHERE id = ?`,
		ref, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set source output: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// NewStaticMix inserts a pending static mix job.
func (s *Store) NewStaticMix(ctx context.Context, sourceID, artist, title string, stems StemSelection) (*Job, error) {
	if !stems.Any() {
		return nil, errors.New("jobs: static mix requires at least one stem")
	}
	return s.insertJob(ctx, &Job{
		Kind:     KindStaticMix,
		SourceID: sourceID,
		Artist:   artist,
		Title:    title,
		Stems:    stems,
	})
}

// NewDynamicMix inserts a pending dynamic mix job.
func (s *Store) NewDynamicMix(ctx context.Context, sourceID, artist, title string) (*Job, error) {
	return s.insertJob(ctx, &Job{
		Kind:     KindDynamicMix,
		SourceID: sourceID,
		Artist:   artist,
		Title:    title,
	})
}

// NewFetch inserts a pending fetch job attached to its parent source record.
func (s *Store) NewFetch(ctx context.Context, sourceID, artist, title, link string) (*Job, error) {
	if link == "" {
		return nil, errors.New("jobs: fetch requires a link")
	}
	if sourceID == "" {
		return nil, errors.New("jobs: fetch requires a source record")
	}
	return s.insertJob(ctx, &Job{
		Kind:     KindFetch,
		SourceID: sourceID,
		Artist:   artist,
		Title:    title,
		Link:     link,
	})
}

func (s *Store) insertJob(ctx context.Context, job *Job) (*Job, error) {
	now := timestamp(time.Now())
	id := uuid.NewString()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, kind, status, source_id, artist, title, link,
            stem_vocals, stem_drums, stem_bass, stem_other,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		job.Kind,
		StatusPending,
		nullableString(job.SourceID),
		job.Artist,
		job.Title,
		job.Link,
		boolToInt(job.Stems.Vocals),
		boolToInt(job.Stems.Drums),
		boolToInt(job.Stems.Bass),
		boolToInt(job.Stems.Other),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert %s job: %w", job.Kind, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListInProgressOlderThan returns in-progress jobs created at or before cutoff.
func (s *Store) ListInProgressOlderThan(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND created_at <= ? ORDER BY created_at`,
		StatusInProgress, timestamp(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list stale candidates: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

const jobColumns = "id, kind, status, error_message, source_id, artist, title, link, stem_vocals, stem_drums, stem_bass, stem_other, outputs_json, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		kind         string
		statusStr    string
		errorMessage sql.NullString
		sourceID     sql.NullString
		artist       string
		title        string
		link         string
		stemVocals   int
		stemDrums    int
		stemBass     int
		stemOther    int
		outputsRaw   sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&statusStr,
		&errorMessage,
		&sourceID,
		&artist,
		&title,
		&link,
		&stemVocals,
		&stemDrums,
		&stemBass,
		&stemOther,
		&outputsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Kind:         Kind(kind),
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		SourceID:     sourceID.String,
		Artist:       artist,
		Title:        title,
		Link:         link,
		Stems: StemSelection{
			Vocals: stemVocals != 0,
			Drums:  stemDrums != 0,
			Bass:   stemBass != 0,
			Other:  stemOther != 0,
		},
	}
	if outputsRaw.Valid && outputsRaw.String != "" {
		outputs := map[OutputKind]string{}
		if err := json.Unmarshal([]byte(outputsRaw.String), &outputs); err != nil {
			return nil, fmt.Errorf("decode outputs for job %s: %w", id, err)
		}
		job.Outputs = outputs
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
