package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/config"
	"github.com/wemarket/qr-order/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := config.OpenSQLite("file:"+name+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openDB(t, "migrate_idempotent")

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	for _, m := range coreModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
	var count int64
	require.NoError(t, db.Model(&schemaMigration{}).Count(&count).Error)
	assert.Equal(t, int64(len(Migrations)), count)
}

func TestMigrateBackfillsBusinessDate(t *testing.T) {
	db := openDB(t, "migrate_backfill")
	require.NoError(t, Migrate(db))

	owner := models.User{Name: "O", Email: "o@example.com", Password: "x"}
	require.NoError(t, db.Create(&owner).Error)
	store := models.Store{OwnerID: owner.ID, Name: "S", BusinessType: "restaurant", OpenTime: "09:00", CloseTime: "22:00", IsActive: true}
	require.NoError(t, db.Create(&store).Error)
	order := models.Order{StoreID: store.ID, OrderNumber: "legacy", Status: models.OrderPending, PaymentStatus: models.PaymentUnpaid, BusinessDate: "x"}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Model(&order).UpdateColumn("business_date", "").Error)

	require.NoError(t, backfillBusinessDate(db))
	require.NoError(t, db.First(&order, order.ID).Error)
	assert.Equal(t, order.CreatedAt.Local().Format(models.BusinessDateLayout), order.BusinessDate)
}

func TestSeed(t *testing.T) {
	db := openDB(t, "seed")
	require.NoError(t, Migrate(db))

	res, err := Seed(db)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 6, res.Tables)
	assert.Equal(t, len(demoMenu), res.Products)

	var owner models.User
	require.NoError(t, db.Where("email = ?", DemoOwnerEmail).First(&owner).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(DemoPassword)))

	var members []models.StoreStaff
	require.NoError(t, db.Where("store_id = ?", res.StoreID).Find(&members).Error)
	assert.Len(t, members, len(demoStaff))

	var categories int64
	require.NoError(t, db.Model(&models.Category{}).Where("store_id = ?", res.StoreID).Count(&categories).Error)
	assert.Equal(t, int64(3), categories)

	again, err := Seed(db)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, owner.ID, again.OwnerID)
}
