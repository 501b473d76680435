package database

import (
	"errors"
	"fmt"

	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "demo1234"

// DemoOwnerEmail identifies the seeded owner; seeding is skipped when it
// already exists.
const DemoOwnerEmail = "owner@wemarket.local"

type SeedResult struct {
	StoreID  uint
	OwnerID  uint
	Tables   int
	Products int
	Skipped  bool
}

type seedProduct struct {
	category string
	name     string
	price    int64
	cooking  int
}

var demoMenu = []seedProduct{
	{"Meals", "Kimchi Fried Rice", 9000, 10},
	{"Meals", "Bibimbap", 10000, 8},
	{"Meals", "Bulgogi Set", 13000, 15},
	{"Noodles", "Naengmyeon", 9500, 7},
	{"Noodles", "Jjajangmyeon", 8000, 6},
	{"Drinks", "Sikhye", 3000, 1},
	{"Drinks", "Barley Tea", 2000, 1},
}

var demoStaff = []struct {
	name, email, role string
}{
	{"Demo Manager", "manager@wemarket.local", models.RoleManager},
	{"Demo Staff", "staff@wemarket.local", models.RoleStaff},
	{"Demo Kitchen", "kitchen@wemarket.local", models.RoleKitchen},
}

// Seed creates a demo store with a menu, six tables and one member per staff
// role, all in a single transaction.
func Seed(db *gorm.DB) (*SeedResult, error) {
	var existing models.User
	err := db.Where("email = ?", DemoOwnerEmail).First(&existing).Error
	if err == nil {
		return &SeedResult{OwnerID: existing.ID, Skipped: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	res := &SeedResult{}
	err = db.Transaction(func(tx *gorm.DB) error {
		owner := models.User{Name: "Demo Owner", Email: DemoOwnerEmail, Password: string(hash)}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		res.OwnerID = owner.ID

		addr := "123 Teheran-ro, Seoul"
		store := models.Store{
			OwnerID:      owner.ID,
			Name:         "WeMarket Demo Kitchen",
			Address:      &addr,
			BusinessType: "restaurant",
			OpenTime:     "09:00",
			CloseTime:    "22:00",
			IsActive:     true,
		}
		if err := tx.Create(&store).Error; err != nil {
			return err
		}
		res.StoreID = store.ID

		categories := map[string]uint{}
		for i, p := range demoMenu {
			catID, ok := categories[p.category]
			if !ok {
				cat := models.Category{StoreID: store.ID, Name: p.category, SortOrder: len(categories), IsActive: true}
				if err := tx.Create(&cat).Error; err != nil {
					return err
				}
				catID = cat.ID
				categories[p.category] = catID
			}
			cooking := p.cooking
			product := models.Product{
				StoreID:     store.ID,
				CategoryID:  &catID,
				Name:        p.name,
				Price:       p.price,
				CookingTime: &cooking,
				IsActive:    true,
				SortOrder:   i,
			}
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			res.Products++
		}

		for i := 1; i <= 6; i++ {
			token, err := utils.NewQRToken()
			if err != nil {
				return err
			}
			table := models.Table{StoreID: store.ID, Name: fmt.Sprintf("Table %d", i), QRCode: token, Capacity: 4, IsActive: true}
			if err := tx.Create(&table).Error; err != nil {
				return err
			}
			res.Tables++
		}

		for _, s := range demoStaff {
			user := models.User{Name: s.name, Email: s.email, Password: string(hash)}
			if err := tx.Where(models.User{Email: s.email}).FirstOrCreate(&user).Error; err != nil {
				return err
			}
			member := models.StoreStaff{StoreID: store.ID, UserID: user.ID, Role: s.role, IsActive: true}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
