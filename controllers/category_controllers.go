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

type CategoryController struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewCategoryController(db *gorm.DB, access *services.AccessService) *CategoryController {
	return &CategoryController{DB: db, Access: access}
}

type categoryInput struct {
	StoreID   uint    `json:"store_id"`
	Name      *string `json:"name"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

// GetCategories lists a store's active categories in display order.
func (cc *CategoryController) GetCategories(c *gin.Context) {
	storeID, ok := idParam(c, "storeId")
	if !ok {
		return
	}
	categories := []models.Category{}
	if err := cc.DB.Where("store_id = ? AND is_active = ?", storeID, true).
		Order("sort_order, id").Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Categories", categories)
}

// CreateCategory
func (cc *CategoryController) CreateCategory(c *gin.Context) {
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	category := models.Category{
		StoreID:  middlewares.StoreID(c),
		Name:     strings.TrimSpace(*in.Name),
		IsActive: true,
	}
	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	}
	if err := cc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *CategoryController) load(c *gin.Context) (*models.Category, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var category models.Category
	if err := cc.DB.First(&category, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("category not found"))
		return nil, false
	}
	if _, ok := authorize(c, cc.Access, category.StoreID, services.PermCategoryWrite); !ok {
		return nil, false
	}
	return &category, true
}

// UpdateCategory
func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	category, ok := cc.load(c)
	if !ok {
		return
	}
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("name must not be empty"))
			return
		}
		category.Name = name
	}
	if in.SortOrder != nil {
		category.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if err := cc.DB.Save(category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory removes the category; its products become uncategorised.
func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	category, ok := cc.load(c)
	if !ok {
		return
	}
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(category).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", nil)
}
