package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

const trialColumns = `id, nct_number, title, phase, sponsor, status, location,
		distance, cancer_type, summary, last_updated, eligibility_criteria, metadata_fields`

// TrialRepository is the PostgreSQL trial catalog used by the full server
type TrialRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *pgxpool.Pool, logger *logrus.Logger) *TrialRepository {
	return &TrialRepository{
		db:  db,
		log: logger,
	}
}

// Upsert inserts a trial or replaces the catalog fields of an existing one
func (r *TrialRepository) Upsert(ctx context.Context, trial *domain.Trial) error {
	if err := trial.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO trials (` + trialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			nct_number = EXCLUDED.nct_number,
			title = EXCLUDED.title,
			phase = EXCLUDED.phase,
			sponsor = EXCLUDED.sponsor,
			status = EXCLUDED.status,
			location = EXCLUDED.location,
			distance = EXCLUDED.distance,
			cancer_type = EXCLUDED.cancer_type,
			summary = EXCLUDED.summary,
			last_updated = EXCLUDED.last_updated,
			eligibility_criteria = EXCLUDED.eligibility_criteria,
			metadata_fields = EXCLUDED.metadata_fields`

	_, err := r.db.Exec(ctx, query,
		trial.ID,
		trial.NCTNumber,
		trial.Title,
		trial.Phase,
		trial.Sponsor,
		string(trial.Status),
		trial.Location,
		trial.Distance,
		string(trial.CancerType),
		trial.Summary,
		trial.LastUpdated,
		nonNil(trial.EligibilityCriteria),
		nonNil(trial.MetadataFields),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"trial_id": trial.ID,
			"error":    err,
		}).Error("Failed to upsert trial")
		return fmt.Errorf("upserting trial: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"trial_id":    trial.ID,
		"cancer_type": trial.CancerType,
		"status":      trial.Status,
	}).Debug("Trial upserted")

	return nil
}

// Get retrieves a trial by its ID
func (r *TrialRepository) Get(ctx context.Context, id string) (*domain.Trial, error) {
	query := `SELECT ` + trialColumns + ` FROM trials WHERE id = $1`

	trial, err := scanTrial(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trial %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"trial_id": id,
			"error":    err,
		}).Error("Failed to get trial")
		return nil, fmt.Errorf("getting trial: %w", err)
	}

	return trial, nil
}

// GetByNCT retrieves a trial by its ClinicalTrials.gov number, ignoring case
func (r *TrialRepository) GetByNCT(ctx context.Context, nctNumber string) (*domain.Trial, error) {
	query := `SELECT ` + trialColumns + ` FROM trials
		WHERE UPPER(nct_number) = UPPER($1) ORDER BY id LIMIT 1`

	trial, err := scanTrial(r.db.QueryRow(ctx, query, nctNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trial %s: %w", nctNumber, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"nct_number": nctNumber,
			"error":      err,
		}).Error("Failed to get trial by NCT number")
		return nil, fmt.Errorf("getting trial: %w", err)
	}

	return trial, nil
}

// List returns trials matching filter ordered by ID
func (r *TrialRepository) List(ctx context.Context, filter domain.TrialFilter) ([]domain.Trial, error) {
	filter = filter.Normalized()

	var (
		conditions []string
		args       []any
	)
	if filter.CancerType != "" {
		args = append(args, string(filter.CancerType))
		conditions = append(conditions, fmt.Sprintf("cancer_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + trialColumns + ` FROM trials`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Skip)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"cancer_type": filter.CancerType,
			"status":      filter.Status,
			"error":       err,
		}).Error("Failed to list trials")
		return nil, fmt.Errorf("listing trials: %w", err)
	}
	defer rows.Close()

	trials := []domain.Trial{}
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}
		trials = append(trials, *trial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trials: %w", err)
	}

	return trials, nil
}

// Count returns the number of catalog trials
func (r *TrialRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting trials: %w", err)
	}
	return count, nil
}

// LatestUpdate returns the newest last_updated, or the zero time when the
// catalog is empty
func (r *TrialRepository) LatestUpdate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	if err := r.db.QueryRow(ctx, `SELECT MAX(last_updated) FROM trials`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("reading latest trial update: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return latest.UTC(), nil
}

// Ping checks the connection pool
func (r *TrialRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Delete removes a trial
func (r *TrialRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting trial: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trial %s: %w", id, domain.ErrNotFound)
	}

	r.log.WithField("trial_id", id).Info("Trial deleted")
	return nil
}

// SeedIfEmpty upserts trials into an empty catalog and reports how many
// were written.
func (r *TrialRepository) SeedIfEmpty(ctx context.Context, trials []domain.Trial) (int, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range trials {
		t := &trials[i]
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("seed trial %s: %w", t.ID, err)
		}
		batch.Queue(`INSERT INTO trials (`+trialColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`,
			t.ID, t.NCTNumber, t.Title, t.Phase, t.Sponsor, string(t.Status),
			t.Location, t.Distance, string(t.CancerType), t.Summary, t.LastUpdated,
			nonNil(t.EligibilityCriteria), nonNil(t.MetadataFields))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("seeding trials: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}

	r.log.WithField("trials", len(trials)).Info("Seeded trial catalog")
	return len(trials), nil
}

// nonNil keeps empty lists as [] in JSONB columns and responses.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func scanTrial(row pgx.Row) (*domain.Trial, error) {
	var (
		t          domain.Trial
		status     string
		cancerType string
	)
	err := row.Scan(
		&t.ID,
		&t.NCTNumber,
		&t.Title,
		&t.Phase,
		&t.Sponsor,
		&status,
		&t.Location,
		&t.Distance,
		&cancerType,
		&t.Summary,
		&t.LastUpdated,
		&t.EligibilityCriteria,
		&t.MetadataFields,
	)
	if err != nil {
		return nil, err
	}
	t.EligibilityCriteria = nonNil(t.EligibilityCriteria)
	t.MetadataFields = nonNil(t.MetadataFields)
	t.Status = domain.TrialStatus(status)
	t.CancerType = domain.CancerType(cancerType)
	t.LastUpdated = t.LastUpdated.UTC()
	return &t, nil
}
