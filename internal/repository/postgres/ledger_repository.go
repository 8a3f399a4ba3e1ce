package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/checkstock/internal/domain"
)

const ledgerColumns = `
	id, batch_id, kind, material, material_raw, lot, location,
	bag_count, weight_kg, inbound_bags, inbound_kg, outbound_bags, outbound_kg,
	closing_bags, closing_kg, avg_kg_per_bag, supplier, observed_date, raw_date,
	source_sheet, source_row, source_column, age_days, created_at`

type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository returns the PostgreSQL ledger. Rows are only ever
// inserted.
func NewLedgerRepository(db *DB) *ledgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	return r.AppendBatch(ctx, []domain.LedgerEntry{entry})
}

func (r *ledgerRepository) AppendBatch(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO ledger_entries (` + ledgerColumns + `
			) VALUES (
				:id, :batch_id, :kind, :material, :material_raw, :lot, :location,
				:bag_count, :weight_kg, :inbound_bags, :inbound_kg, :outbound_bags, :outbound_kg,
				:closing_bags, :closing_kg, :avg_kg_per_bag, :supplier, :observed_date, :raw_date,
				:source_sheet, :source_row, :source_column, :age_days, :created_at
			)
			ON CONFLICT (id) DO NOTHING
		`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i := range entries {
			if _, err := stmt.ExecContext(ctx, &entries[i]); err != nil {
				return fmt.Errorf("failed to insert ledger entry %s: %w", entries[i].ID, err)
			}
		}

		return nil
	})
}

func (r *ledgerRepository) ListEntries(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE 1=1`

	where, args := buildLedgerFilter(filter)
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	var entries []domain.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("error listing ledger entries: %w", err)
	}

	return entries, nil
}

func buildLedgerFilter(filter domain.LedgerFilter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	argCounter := 1

	if len(filter.Materials) > 0 {
		materials := make([]string, 0, len(filter.Materials))
		for _, m := range filter.Materials {
			materials = append(materials, domain.NormalizeMaterial(m))
		}
		conditions = append(conditions, fmt.Sprintf("material = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(materials))
		argCounter++
	}

	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		conditions = append(conditions, fmt.Sprintf("kind = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(kinds))
		argCounter++
	}

	if lot := domain.NormalizeCode(filter.Lot); lot != "" {
		conditions = append(conditions, fmt.Sprintf("lot = $%d", argCounter))
		args = append(args, lot)
		argCounter++
	}

	if filter.SourceSheet != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(source_sheet) = LOWER($%d)", argCounter))
		args = append(args, filter.SourceSheet)
		argCounter++
	}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("observed_date >= $%d::date", argCounter))
		args = append(args, filter.From.Format("2006-01-02"))
		argCounter++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("observed_date <= $%d::date", argCounter))
		args = append(args, filter.To.Format("2006-01-02"))
	}

	return conditions, args
}
