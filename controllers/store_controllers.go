package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

type StoreController struct {
	DB *gorm.DB
}

func NewStoreController(db *gorm.DB) *StoreController {
	return &StoreController{DB: db}
}

type storeInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	BusinessType *string `json:"business_type"`
	OpenTime     *string `json:"open_time"`
	CloseTime    *string `json:"close_time"`
	IsActive     *bool   `json:"is_active"`
}

// StoreMembership is a store with the caller's role in it.
type StoreMembership struct {
	models.Store
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h := (int(s[0]-'0'))*10 + int(s[1]-'0')
	m := (int(s[3]-'0'))*10 + int(s[4]-'0')
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return h < 24 && m < 60
}

func (in storeInput) apply(store *models.Store) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return errors.New("name must not be empty")
		}
		store.Name = name
	}
	if in.Description != nil {
		store.Description = in.Description
	}
	if in.Address != nil {
		store.Address = in.Address
	}
	if in.Phone != nil {
		store.Phone = in.Phone
	}
	if in.BusinessType != nil && *in.BusinessType != "" {
		store.BusinessType = *in.BusinessType
	}
	for _, t := range []*string{in.OpenTime, in.CloseTime} {
		if t != nil && !validClock(*t) {
			return errors.New("opening hours must be HH:MM")
		}
	}
	if in.OpenTime != nil {
		store.OpenTime = *in.OpenTime
	}
	if in.CloseTime != nil {
		store.CloseTime = *in.CloseTime
	}
	if in.IsActive != nil {
		store.IsActive = *in.IsActive
	}
	return nil
}

// GetAllStores lists active stores.
func (sc *StoreController) GetAllStores(c *gin.Context) {
	stores := []models.Store{}
	if err := sc.DB.Where("is_active = ?", true).Order("id").Find(&stores).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stores", stores)
}

// membershipsFor lists the stores userID owns or works in, owned first.
func membershipsFor(db *gorm.DB, userID uint) ([]StoreMembership, error) {
	var owned []models.Store
	if err := db.Where("owner_id = ?", userID).Order("id").Find(&owned).Error; err != nil {
		return nil, err
	}
	var staffed []struct {
		models.Store
		Role string
	}
	if err := db.Model(&models.Store{}).
		Select("stores.*, store_staff.role AS role").
		Joins("JOIN store_staff ON store_staff.store_id = stores.id").
		Where("store_staff.user_id = ? AND store_staff.is_active = ?", userID, true).
		Order("stores.id").
		Scan(&staffed).Error; err != nil {
		return nil, err
	}

	out := make([]StoreMembership, 0, len(owned)+len(staffed))
	seen := map[uint]bool{}
	for _, s := range owned {
		seen[s.ID] = true
		out = append(out, StoreMembership{Store: s, Role: models.RoleOwner, RoleLabel: services.RoleLabels[models.RoleOwner]})
	}
	for _, s := range staffed {
		if seen[s.ID] {
			continue
		}
		out = append(out, StoreMembership{Store: s.Store, Role: s.Role, RoleLabel: services.RoleLabels[s.Role]})
	}
	return out, nil
}

func (sc *StoreController) GetMyStores(c *gin.Context) {
	out, err := membershipsFor(sc.DB.WithContext(c.Request.Context()), middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "My stores", out)
}

func (sc *StoreController) GetStoreByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var store models.Store
	if err := sc.DB.Model(&models.Store{}).
		Select("stores.*, users.name AS owner_name").
		Joins("LEFT JOIN users ON users.id = stores.owner_id").
		Where("stores.id = ?", id).
		Take(&store).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("store not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store", store)
}

// CreateStore makes the caller the owner of a new store.
func (sc *StoreController) CreateStore(c *gin.Context) {
	var in storeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	store := models.Store{
		OwnerID:      middlewares.CurrentUserID(c),
		BusinessType: "restaurant",
		OpenTime:     "09:00",
		CloseTime:    "22:00",
		IsActive:     true,
	}
	if err := in.apply(&store); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := sc.DB.Create(&store).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.WithField("store_id", store.ID).Info("store created")
	utils.RespondJSON(c, http.StatusCreated, "Store created", store)
}

func (sc *StoreController) UpdateStore(c *gin.Context) {
	var store models.Store
	if err := sc.DB.First(&store, middlewares.StoreID(c)).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("store not found"))
		return
	}
	var in storeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.apply(&store); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := sc.DB.Save(&store).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store updated", store)
}

func (sc *StoreController) DeleteStore(c *gin.Context) {
	res := sc.DB.Delete(&models.Store{}, middlewares.StoreID(c))
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("store not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Store deleted", nil)
}
