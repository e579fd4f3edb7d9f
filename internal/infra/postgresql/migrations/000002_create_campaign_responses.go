package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/AkashMedishetty/bloodalert/internal/audit"
)

func createCampaignResponsesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_campaign_responses",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&audit.ResponseRecord{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_campaign_responses_campaign_decision ON campaign_responses (campaign_id, decision)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&audit.ResponseRecord{})
		},
	}
}
