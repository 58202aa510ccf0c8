package transit

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// CollectionStatus is one row per collector name, mutated at every cycle
// boundary and never deleted.
type CollectionStatus struct {
	CollectorName string `db:"collector_name" json:"collector_name"`
	Status        string `db:"status" json:"status"`
	// RecordsCollected accumulates across cycles, an update adds to it rather
	// than replacing it
	RecordsCollected int64   `db:"records_collected" json:"records_collected"`
	ErrorMessage     *string `db:"error_message" json:"error_message"`
	// LastRunAt is bumped on every update
	LastRunAt time.Time `db:"last_run_at" json:"last_run_at"`
	// LastSuccessAt is stamped only when the reported status is "running",
	// it marks the start of an attempt rather than a verified completion.
	// Health checks depend on this meaning.
	LastSuccessAt *time.Time `db:"last_success_at" json:"last_success_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UpsertCollectionStatus inserts or updates the row for collectorName.
// recordsDelta is added to the cumulative counter, status and errorMessage
// overwrite unconditionally.
func UpsertCollectionStatus(db *sqlx.DB,
	collectorName string,
	status string,
	recordsDelta int,
	errorMessage *string) error {

	statementString := "insert into collection_status " +
		"(collector_name, status, records_collected, error_message, last_run_at, last_success_at) " +
		"values " +
		"(:collector_name, :status, :records_delta, :error_message, now(), " +
		"case when :status = 'running' then now() end) " +
		"on conflict (collector_name) do update set " +
		"status = excluded.status, " +
		"records_collected = collection_status.records_collected + excluded.records_collected, " +
		"error_message = excluded.error_message, " +
		"last_run_at = excluded.last_run_at, " +
		"last_success_at = case when excluded.status = 'running' then now() " +
		"else collection_status.last_success_at end, " +
		"updated_at = now()"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, map[string]interface{}{
		"collector_name": collectorName,
		"status":         status,
		"records_delta":  recordsDelta,
		"error_message":  errorMessage,
	})
	return err
}

// GetCollectionStatuses retrieves every collector status row
func GetCollectionStatuses(db *sqlx.DB) ([]*CollectionStatus, error) {
	query := "select collector_name, status, records_collected, error_message, " +
		"last_run_at, last_success_at, updated_at " +
		"from collection_status order by collector_name"
	statuses := make([]*CollectionStatus, 0)
	err := db.Select(&statuses, query)
	return statuses, err
}
