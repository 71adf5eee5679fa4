package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/callsense/callsense/internal/pkg/persistence"
	"github.com/callsense/callsense/internal/pkg/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	return &DB{pool: pool}, nil
}

// InsertCall inserts a new call record
func (db *DB) InsertCall(ctx context.Context, call *persistence.Call) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO calls(id, organization_id, audio_reference, status, email, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $6)`, call.ID, call.OrganizationID, call.AudioReference,
		call.Status, call.Email, call.Created)
	if err != nil {
		return fmt.Errorf("can't insert call: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadCall loads a call, nil if it does not exist
func (db *DB) LoadCall(ctx context.Context, id string) (*persistence.Call, error) {
	var res persistence.Call
	var transcript, analysis []byte
	err := db.pool.QueryRow(ctx, `SELECT id, organization_id, audio_reference, status, error, email,
	transcript, analysis, created, processed, updated FROM calls
		WHERE id = $1`, id).Scan(&res.ID, &res.OrganizationID, &res.AudioReference, &res.Status,
		&res.Error, &res.Email, &transcript, &analysis, &res.Created, &res.Processed, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load call: %w", err)
	}
	if len(transcript) > 0 {
		res.Transcript = &persistence.Transcript{}
		if err := json.Unmarshal(transcript, res.Transcript); err != nil {
			return nil, fmt.Errorf("can't unmarshal transcript: %w", err)
		}
	}
	if len(analysis) > 0 {
		res.Analysis = &persistence.Analysis{}
		if err := json.Unmarshal(analysis, res.Analysis); err != nil {
			return nil, fmt.Errorf("can't unmarshal analysis: %w", err)
		}
	}
	return &res, nil
}

// UpdateStatus moves a call to the new status
func (db *DB) UpdateStatus(ctx context.Context, id string, st status.Status) error {
	rows, err := db.pool.Exec(ctx, `UPDATE calls SET status = $2, updated = $3 WHERE id = $1`,
		id, st.String(), time.Now())
	if err != nil {
		return fmt.Errorf("can't update status: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't update status, no records found")
	}
	return nil
}

// SaveTranscript persists the transcript document and moves the
// call into the analyzing status. A rerun overwrites the old transcript.
func (db *DB) SaveTranscript(ctx context.Context, id string, tr *persistence.Transcript) error {
	data, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("can't marshal transcript: %w", err)
	}
	rows, err := db.pool.Exec(ctx, `UPDATE calls SET transcript = $2, status = $3, updated = $4 WHERE id = $1`,
		id, data, status.Analyzing.String(), time.Now())
	if err != nil {
		return fmt.Errorf("can't save transcript: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't save transcript, no records found")
	}
	return nil
}

// SaveAnalysis persists the analysis document, moves the call to
// completed and stamps the processing time
func (db *DB) SaveAnalysis(ctx context.Context, id string, als *persistence.Analysis, processed time.Time) error {
	data, err := json.Marshal(als)
	if err != nil {
		return fmt.Errorf("can't marshal analysis: %w", err)
	}
	rows, err := db.pool.Exec(ctx, `UPDATE calls SET analysis = $2, status = $3, error = '', processed = $4, updated = $5 WHERE id = $1`,
		id, data, status.Completed.String(), processed, time.Now())
	if err != nil {
		return fmt.Errorf("can't save analysis: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't save analysis, no records found")
	}
	return nil
}

// MarkFailed moves the call into the terminal failed status with the reason
func (db *DB) MarkFailed(ctx context.Context, id, errMsg string) error {
	rows, err := db.pool.Exec(ctx, `UPDATE calls SET status = $2, error = $3, updated = $4 WHERE id = $1`,
		id, status.Failed.String(), errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("can't mark failed: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't mark failed, no records found")
	}
	return nil
}

// LoadStuck returns calls sitting in a non-terminal processing status
// longer than the provided age
func (db *DB) LoadStuck(ctx context.Context, olderThan time.Duration) ([]persistence.Call, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, organization_id, status, updated FROM calls
		WHERE status = ANY($1) AND updated < $2`,
		[]string{status.Processing.String(), status.Transcribing.String(), status.Analyzing.String()},
		time.Now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("can't load stuck calls: %w", err)
	}
	defer rows.Close()
	var res []persistence.Call
	for rows.Next() {
		var c persistence.Call
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Status, &c.Updated); err != nil {
			return nil, fmt.Errorf("can't scan call: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// LoadOrganization loads a tenant, nil if it does not exist
func (db *DB) LoadOrganization(ctx context.Context, id string) (*persistence.Organization, error) {
	var res persistence.Organization
	err := db.pool.QueryRow(ctx, `SELECT id, name, plan, monthly_calls, call_limit, created FROM organizations
		WHERE id = $1`, id).Scan(&res.ID, &res.Name, &res.Plan, &res.MonthlyCalls, &res.CallLimit, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load organization: %w", err)
	}
	return &res, nil
}

// IncrementMonthlyCalls adds one completed call to the tenant's monthly
// usage. The increment runs in SQL, safe under concurrent completions.
func (db *DB) IncrementMonthlyCalls(ctx context.Context, orgID string) error {
	rows, err := db.pool.Exec(ctx, `UPDATE organizations SET monthly_calls = monthly_calls + 1 WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("can't increment usage: %w", err)
	}
	if rows.RowsAffected() != 1 {
		return fmt.Errorf("can't increment usage, no organization %s", orgID)
	}
	return nil
}
