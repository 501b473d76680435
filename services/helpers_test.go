package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/config"
	"github.com/wemarket/qr-order/database"
	"github.com/wemarket/qr-order/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	owner   models.User
	admin   models.User
	manager models.User
	staff   models.User
	kitchen models.User
	store   models.Store
	table   models.Table
	burger  models.Product
	fries   models.Product
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	require.NoError(t, db.Create(v).Error)
}

// seedFixture creates one store with a member of every role, a table and two
// products. The burger takes 12 minutes; the fries have no cooking time.
func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{}
	users := []*models.User{&f.owner, &f.admin, &f.manager, &f.staff, &f.kitchen}
	for i, name := range []string{"Owner", "Admin", "Manager", "Staff", "Kitchen"} {
		*users[i] = models.User{Name: name, Email: strings.ToLower(name) + "@example.com", Password: "x"}
		mustCreate(t, db, users[i])
	}

	f.store = models.Store{OwnerID: f.owner.ID, Name: "Hanok Table", BusinessType: "restaurant", OpenTime: "09:00", CloseTime: "22:00", IsActive: true}
	mustCreate(t, db, &f.store)

	members := map[*models.User]string{
		&f.admin:   models.RoleAdmin,
		&f.manager: models.RoleManager,
		&f.staff:   models.RoleStaff,
		&f.kitchen: models.RoleKitchen,
	}
	for u, role := range members {
		mustCreate(t, db, &models.StoreStaff{StoreID: f.store.ID, UserID: u.ID, Role: role, IsActive: true})
	}

	f.table = models.Table{StoreID: f.store.ID, Name: "A1", QRCode: "qr-" + strings.ToLower(t.Name()), Capacity: 4, IsActive: true}
	mustCreate(t, db, &f.table)

	twelve := 12
	f.burger = models.Product{StoreID: f.store.ID, Name: "Bulgogi Burger", Price: 8000, CookingTime: &twelve, IsActive: true}
	mustCreate(t, db, &f.burger)
	f.fries = models.Product{StoreID: f.store.ID, Name: "Fries", Price: 2500, IsActive: true}
	mustCreate(t, db, &f.fries)
	return f
}

// fixedClock pins the service clock to a local noon.
func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.Local) }
}

func (f *fixture) orderInput() CreateOrderInput {
	return CreateOrderInput{
		StoreID: f.store.ID,
		TableID: &f.table.ID,
		Items: []CreateOrderItemInput{
			{ProductID: f.burger.ID, ProductName: "Bulgogi Burger", Price: 8000, Quantity: 1},
			{ProductID: f.fries.ID, ProductName: "Fries", Price: 2500, Quantity: 2},
		},
	}
}

type countingNotifier struct{ calls int }

func (c *countingNotifier) Notify() { c.calls++ }
