// Package catalog stores descriptive trial records (title, sponsor, site,
// recruitment status) behind database/sql. SQLite backs the lite binary;
// PostgreSQL is available for shared deployments.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/trialscout-server/internal/domain"
)

// Store is a trial catalog that can be exported, imported and closed.
type Store interface {
	domain.TrialCatalog
	ExportJSON(ctx context.Context, w io.Writer) error
	ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error)
	Close() error
}

// Export is the JSON interchange format of a catalog.
type Export struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Trials     []domain.Trial `json:"trials"`
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const trialColumns = `id, nct_number, title, phase, sponsor, status, location,
	distance, cancer_type, summary, last_updated, eligibility_criteria, metadata_fields`

// sqlStore holds the queries shared by both backends.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrial(s scanner) (*domain.Trial, error) {
	t := &domain.Trial{}
	var status, cancerType string
	var criteria, metadata []byte

	err := s.Scan(
		&t.ID, &t.NCTNumber, &t.Title, &t.Phase, &t.Sponsor, &status, &t.Location,
		&t.Distance, &cancerType, &t.Summary, &t.LastUpdated, &criteria, &metadata,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeList(criteria, &t.EligibilityCriteria); err != nil {
		return nil, fmt.Errorf("decoding eligibility criteria of %s: %w", t.ID, err)
	}
	if err := decodeList(metadata, &t.MetadataFields); err != nil {
		return nil, fmt.Errorf("decoding metadata fields of %s: %w", t.ID, err)
	}

	t.Status = domain.TrialStatus(status)
	t.CancerType = domain.CancerType(cancerType)
	return t, nil
}

// encodeList stores a slice as a JSON array; nil becomes [].
func encodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList[T any](raw []byte, dst *[]T) error {
	*dst = []T{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// List returns trials matching filter ordered by ID.
func (s *sqlStore) List(ctx context.Context, filter domain.TrialFilter) ([]domain.Trial, error) {
	filter = filter.Normalized()

	var where []string
	var args []interface{}
	if filter.CancerType != "" {
		where = append(where, "cancer_type = ?")
		args = append(args, string(filter.CancerType))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + trialColumns + " FROM trials"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Skip)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing trials: %w", err)
	}
	defer rows.Close()

	trials := []domain.Trial{}
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trial row: %w", err)
		}
		trials = append(trials, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trial rows: %w", err)
	}
	return trials, nil
}

// Get returns one trial or domain.ErrNotFound.
func (s *sqlStore) Get(ctx context.Context, id string) (*domain.Trial, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+trialColumns+" FROM trials WHERE id = ?"), id)

	t, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting trial %s: %w", id, err)
	}
	return t, nil
}

// GetByNCT returns the trial registered under a ClinicalTrials.gov number.
// The match ignores case.
func (s *sqlStore) GetByNCT(ctx context.Context, nctNumber string) (*domain.Trial, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT "+trialColumns+" FROM trials WHERE UPPER(nct_number) = UPPER(?) ORDER BY id LIMIT 1"),
		nctNumber)

	t, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %s: %w", nctNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting trial %s: %w", nctNumber, err)
	}
	return t, nil
}

// Upsert inserts trial or replaces the stored record with the same ID.
func (s *sqlStore) Upsert(ctx context.Context, trial *domain.Trial) error {
	if err := trial.Validate(); err != nil {
		return err
	}
	if trial.LastUpdated.IsZero() {
		trial.LastUpdated = time.Now().UTC()
	}

	criteria, err := encodeList(trial.EligibilityCriteria)
	if err != nil {
		return fmt.Errorf("encoding eligibility criteria of %s: %w", trial.ID, err)
	}
	metadata, err := encodeList(trial.MetadataFields)
	if err != nil {
		return fmt.Errorf("encoding metadata fields of %s: %w", trial.ID, err)
	}

	query := `
		INSERT INTO trials (` + trialColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			nct_number = excluded.nct_number,
			title = excluded.title,
			phase = excluded.phase,
			sponsor = excluded.sponsor,
			status = excluded.status,
			location = excluded.location,
			distance = excluded.distance,
			cancer_type = excluded.cancer_type,
			summary = excluded.summary,
			last_updated = excluded.last_updated,
			eligibility_criteria = excluded.eligibility_criteria,
			metadata_fields = excluded.metadata_fields
	`
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(query),
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
		trial.LastUpdated.UTC(),
		criteria,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("upserting trial %s: %w", trial.ID, err)
	}
	return nil
}

// Count returns the number of stored trials.
func (s *sqlStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trials").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting trials: %w", err)
	}
	return count, nil
}

// LatestUpdate returns the newest last_updated value, or the zero time for
// an empty catalog.
func (s *sqlStore) LatestUpdate(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT last_updated FROM trials ORDER BY last_updated DESC LIMIT 1").Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading latest trial update: %w", err)
	}
	return latest.UTC(), nil
}

// ExportJSON writes every trial to w.
func (s *sqlStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := domain.ListAllTrials(ctx, s, domain.TrialFilter{})
	if err != nil {
		return err
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Trials:     all,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads trials from r. Trials already present are skipped.
func (s *sqlStore) ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding catalog JSON: %w", err)
	}

	for i := range export.Trials {
		t := export.Trials[i]

		_, err := s.Get(ctx, t.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, err
		}

		if err := s.Upsert(ctx, &t); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

// Ping checks the database connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
