package migration

import (
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	payoutdomain "github.com/principalgrid/billing/internal/payout/domain"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the gorm models for non-postgres
// deployments (dev sqlite, tests).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&usagedomain.UsageRecord{},
		&payoutdomain.Payout{},
		&fundingdomain.BillingConfig{},
	)
}
