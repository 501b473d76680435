package database

import (
	"fmt"
	"time"

	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

// Migration is one schema step. Applies reports whether the step still has
// work to do against the live schema; Run performs it.
type Migration struct {
	ID      string
	Applies func(db *gorm.DB) bool
	Run     func(tx *gorm.DB) error
}

type schemaMigration struct {
	ID        string    `gorm:"primaryKey;type:varchar(100)"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

// coreModels are created in dependency order.
var coreModels = []interface{}{
	&models.User{},
	&models.Store{},
	&models.StoreStaff{},
	&models.Category{},
	&models.Product{},
	&models.Table{},
	&models.TableAssignment{},
	&models.Order{},
	&models.OrderItem{},
	&models.OrderStatusLog{},
	&models.OrderEvent{},
	&models.OutboxCursor{},
}

func missingTable(model interface{}) func(db *gorm.DB) bool {
	return func(db *gorm.DB) bool {
		return !db.Migrator().HasTable(model)
	}
}

func missingColumn(model interface{}, column string) func(db *gorm.DB) bool {
	return func(db *gorm.DB) bool {
		return db.Migrator().HasTable(model) && !db.Migrator().HasColumn(model, column)
	}
}

func anyOf(checks ...func(db *gorm.DB) bool) func(db *gorm.DB) bool {
	return func(db *gorm.DB) bool {
		for _, check := range checks {
			if check(db) {
				return true
			}
		}
		return false
	}
}

func addColumns(model interface{}, columns ...string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		for _, col := range columns {
			if tx.Migrator().HasColumn(model, col) {
				continue
			}
			if err := tx.Migrator().AddColumn(model, col); err != nil {
				return fmt.Errorf("add column %s: %w", col, err)
			}
		}
		return nil
	}
}

// Migrations is the ordered schema history. Databases created from scratch get
// every table from the first step and skip the column additions; databases
// created by older releases pick up the columns that were added over time.
var Migrations = []Migration{
	{
		ID: "0001_core_tables",
		Applies: func(db *gorm.DB) bool {
			for _, m := range coreModels {
				if !db.Migrator().HasTable(m) {
					return true
				}
			}
			return false
		},
		Run: func(tx *gorm.DB) error {
			for _, m := range coreModels {
				if tx.Migrator().HasTable(m) {
					continue
				}
				if err := tx.Migrator().CreateTable(m); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		ID:      "0002_order_queue_columns",
		Applies: anyOf(missingColumn(&models.Order{}, "QueueNumber"), missingColumn(&models.Order{}, "EstimatedMinutes")),
		Run:     addColumns(&models.Order{}, "QueueNumber", "EstimatedMinutes"),
	},
	{
		ID:      "0003_order_updated_by",
		Applies: missingColumn(&models.Order{}, "UpdatedBy"),
		Run:     addColumns(&models.Order{}, "UpdatedBy"),
	},
	{
		ID:      "0004_product_cooking_time",
		Applies: missingColumn(&models.Product{}, "CookingTime"),
		Run:     addColumns(&models.Product{}, "CookingTime"),
	},
	{
		ID:      "0005_order_version_and_business_date",
		Applies: anyOf(missingColumn(&models.Order{}, "Version"), missingColumn(&models.Order{}, "BusinessDate")),
		Run: func(tx *gorm.DB) error {
			if err := addColumns(&models.Order{}, "Version", "BusinessDate")(tx); err != nil {
				return err
			}
			return backfillBusinessDate(tx)
		},
	},
	{
		ID: "0006_outbox_and_assignments",
		Applies: anyOf(
			missingTable(&models.TableAssignment{}),
			missingTable(&models.OrderStatusLog{}),
			missingTable(&models.OrderEvent{}),
		),
		Run: func(tx *gorm.DB) error {
			for _, m := range []interface{}{&models.TableAssignment{}, &models.OrderStatusLog{}, &models.OrderEvent{}} {
				if tx.Migrator().HasTable(m) {
					continue
				}
				if err := tx.Migrator().CreateTable(m); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		ID:      "0007_outbox_cursors",
		Applies: missingTable(&models.OutboxCursor{}),
		Run: func(tx *gorm.DB) error {
			return tx.Migrator().CreateTable(&models.OutboxCursor{})
		},
	},
}

func backfillBusinessDate(tx *gorm.DB) error {
	var orders []models.Order
	if err := tx.Select("id", "created_at").Where("business_date = '' OR business_date IS NULL").Find(&orders).Error; err != nil {
		return err
	}
	for _, o := range orders {
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).
			UpdateColumn("business_date", o.CreatedAt.Local().Format(models.BusinessDateLayout)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Migrate applies every pending migration in order. A migration is recorded
// as applied either after it ran or when its applicability check finds nothing
// to do.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []schemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.ID] = true
	}

	for _, m := range Migrations {
		if done[m.ID] {
			continue
		}
		if !m.Applies(db) {
			utils.InfoLogger.WithField("migration", m.ID).Debug("migration not applicable, recording")
		} else {
			if err := m.Run(db); err != nil {
				return fmt.Errorf("migration %s: %w", m.ID, err)
			}
			utils.InfoLogger.WithField("migration", m.ID).Info("migration applied")
		}
		if err := db.Create(&schemaMigration{ID: m.ID, AppliedAt: time.Now()}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.ID, err)
		}
	}
	return nil
}
