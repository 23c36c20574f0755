package timeline

import "context"

// Repository fetches the raw per-table clinical records for one patient.
// The pipeline itself never touches storage; all I/O happens here, before
// the pure transform runs.
type Repository interface {
	FetchRecords(ctx context.Context, kind Kind, patientID string) ([]Record, error)
}
