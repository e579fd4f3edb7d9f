package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/AkashMedishetty/bloodalert/internal/audit"
)

func createCampaignArchivesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_campaign_archives",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&audit.CampaignArchive{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_campaign_archives_status_closed ON campaign_archives (status, closed_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&audit.CampaignArchive{})
		},
	}
}
