package collector

import (
	"log"
	"time"

	"github.com/burakkagann/berlin-pulse/business/data/transit"
	"github.com/jmoiron/sqlx"
)

// CleanupOldData removes records older than the retention window, keeping the
// stored history a rolling window rather than an unbounded archive
func CleanupOldData(log *log.Logger, db *sqlx.DB, retentionDays int) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	vehiclesDeleted, err := transit.DeleteVehiclePositionsBefore(db, cutoff)
	if err != nil {
		log.Printf("error cleaning up vehicle positions. error: %v\n", err)
	}
	departuresDeleted, err := transit.DeleteDepartureEventsBefore(db, cutoff)
	if err != nil {
		log.Printf("error cleaning up departure events. error: %v\n", err)
	}

	log.Printf("cleaned up old data: %d vehicle positions, %d departure events removed, keeping %d days\n",
		vehiclesDeleted, departuresDeleted, retentionDays)
}
