package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ionbatch/internal/chem"
	"ionbatch/internal/identify"
	"ionbatch/internal/outcome"
)

const outcomeColumns = "instance_index, name, source_file, ion_type, ion_mass, kind, message, correlation_id"

// Filter narrows List results.
type Filter struct {
	Kinds []outcome.Kind
	RunID string
	Limit int
}

// List returns stored outcomes ordered by instance index. Only the top
// ranked candidate is loaded for each record.
func (s *Store) List(ctx context.Context, filter Filter) ([]outcome.Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + outcomeColumns + ` FROM outcomes`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+makePlaceholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY instance_index"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	var records []outcome.Record
	for rows.Next() {
		rec, err := scanOutcome(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range records {
		if records[i].Kind != outcome.KindSuccess {
			continue
		}
		candidates, err := s.candidates(ctx, records[i].Index, 1)
		if err != nil {
			return nil, err
		}
		records[i].Candidates = candidates
	}
	return records, nil
}

// Get returns the record stored for index with all candidates, or nil when
// no record exists.
func (s *Store) Get(ctx context.Context, index int) (*outcome.Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+outcomeColumns+` FROM outcomes WHERE instance_index = ?`, index)
	rec, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome: %w", err)
	}
	rec.Candidates, err = s.candidates(ctx, index, 0)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Counts returns the number of stored outcomes per kind.
func (s *Store) Counts(ctx context.Context) (map[outcome.Kind]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT kind, COUNT(1) FROM outcomes GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()
	counts := make(map[outcome.Kind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[outcome.Kind(kind)] = count
	}
	return counts, rows.Err()
}

func (s *Store) candidates(ctx context.Context, index, limit int) ([]identify.Candidate, error) {
	query := `SELECT formula, ion_type, score, tree_score, isotope_score, tree_size, explained_intensity, isotope_peaks
        FROM candidates WHERE instance_index = ? ORDER BY rank`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, index)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []identify.Candidate
	for rows.Next() {
		var (
			formula      string
			ionType      sql.NullString
			c            identify.Candidate
			treeScore    sql.NullFloat64
			isotopeScore sql.NullFloat64
			treeSize     sql.NullInt64
			explained    sql.NullFloat64
			isotopePeaks sql.NullInt64
		)
		if err := rows.Scan(&formula, &ionType, &c.Score, &treeScore, &isotopeScore, &treeSize, &explained, &isotopePeaks); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if c.Formula, err = chem.ParseFormula(formula); err != nil {
			return nil, fmt.Errorf("stored candidate %d: %w", index, err)
		}
		if ionType.Valid {
			if c.IonType, err = chem.ParseIonType(ionType.String); err != nil {
				return nil, fmt.Errorf("stored candidate %d: %w", index, err)
			}
		}
		c.TreeScore = treeScore.Float64
		c.IsotopeScore = isotopeScore.Float64
		c.TreeSize = int(treeSize.Int64)
		c.ExplainedIntensity = explained.Float64
		c.IsotopePeaks = int(isotopePeaks.Int64)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanOutcome(scanner interface{ Scan(dest ...any) error }) (outcome.Record, error) {
	var (
		rec           outcome.Record
		name          sql.NullString
		sourceFile    sql.NullString
		ionType       sql.NullString
		ionMass       sql.NullFloat64
		kind          string
		message       sql.NullString
		correlationID sql.NullString
	)
	if err := scanner.Scan(&rec.Index, &name, &sourceFile, &ionType, &ionMass, &kind, &message, &correlationID); err != nil {
		return outcome.Record{}, err
	}
	rec.Name = name.String
	rec.SourceFile = sourceFile.String
	rec.IonType = ionType.String
	rec.IonMass = ionMass.Float64
	rec.Kind = outcome.Kind(kind)
	rec.Message = message.String
	rec.CorrelationID = correlationID.String
	return rec, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
