package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/AkashMedishetty/bloodalert/internal/audit"
)

func createDeliveryAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_delivery_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&audit.DeliveryAttemptRecord{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_campaign_channel ON delivery_attempts (campaign_id, channel)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&audit.DeliveryAttemptRecord{})
		},
	}
}
