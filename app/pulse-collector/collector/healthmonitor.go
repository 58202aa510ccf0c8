package collector

import (
	"log"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/jmoiron/sqlx"
)

// CheckCollectionHealth inspects the collection status rows and logs
// collectors that have not marked a cycle start within staleAfter, or that
// are sitting in an error state. last_success_at marks the start of an
// attempt, so a collector stuck mid-cycle goes stale one interval later than
// one that stopped scheduling cycles.
func CheckCollectionHealth(log *log.Logger, db *sqlx.DB, staleAfter time.Duration) {
	statuses, err := transit.GetCollectionStatuses(db)
	if err != nil {
		log.Printf("error reading collection status for health check. error: %v\n", err)
		return
	}

	now := time.Now().UTC()
	for _, status := range statuses {
		if status.LastSuccessAt != nil {
			sinceSuccess := now.Sub(*status.LastSuccessAt)
			if sinceSuccess > staleAfter {
				log.Printf("collector %s hasn't succeeded in %.0fs\n",
					status.CollectorName, sinceSuccess.Seconds())
			}
		}
		if status.Status == transit.CollectorStatusError && status.ErrorMessage != nil {
			log.Printf("collector %s in error state: %s\n", status.CollectorName, *status.ErrorMessage)
		}
	}
}
