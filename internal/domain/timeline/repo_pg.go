package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo returns a Repository backed by the source CDM tables. Records
// come back untyped, keyed by the source system's native column names.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) FetchRecords(ctx context.Context, kind Kind, patientID string) ([]Record, error) {
	meta, ok := sourceTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}

	// Table names come from the closed kind table, never from input.
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %s WHERE PATID = $1`, meta.Table), patientID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", meta.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", meta.Table, err)
		}
		rec := make(Record, len(fields))
		for i, f := range fields {
			rec[strings.ToUpper(f.Name)] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", meta.Table, err)
	}
	return records, nil
}
