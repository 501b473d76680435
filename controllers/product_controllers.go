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

type ProductController struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewProductController(db *gorm.DB, access *services.AccessService) *ProductController {
	return &ProductController{DB: db, Access: access}
}

type productInput struct {
	StoreID     uint    `json:"store_id"`
	CategoryID  *uint   `json:"category_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	ImageURL    *string `json:"image_url"`
	CookingTime *int    `json:"cooking_time"`
	IsSoldOut   *bool   `json:"is_sold_out"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

// apply copies the set fields onto p. A category must belong to p's store.
func (in productInput) apply(db *gorm.DB, p *models.Product) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return errors.New("name must not be empty")
		}
		p.Name = name
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return errors.New("price must not be negative")
		}
		p.Price = *in.Price
	}
	if in.CookingTime != nil {
		if *in.CookingTime < 0 {
			return errors.New("cooking_time must not be negative")
		}
		p.CookingTime = in.CookingTime
	}
	if in.CategoryID != nil {
		var n int64
		if err := db.Model(&models.Category{}).
			Where("id = ? AND store_id = ?", *in.CategoryID, p.StoreID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return errors.New("category does not belong to this store")
		}
		p.CategoryID = in.CategoryID
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.ImageURL != nil {
		p.ImageURL = in.ImageURL
	}
	if in.IsSoldOut != nil {
		p.IsSoldOut = *in.IsSoldOut
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.SortOrder != nil {
		p.SortOrder = *in.SortOrder
	}
	return nil
}

func (pc *ProductController) withCategory() *gorm.DB {
	return pc.DB.Model(&models.Product{}).
		Select("products.*, categories.name AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

// GetProducts lists a store's active products, optionally for one category.
func (pc *ProductController) GetProducts(c *gin.Context) {
	storeID, ok := idParam(c, "storeId")
	if !ok {
		return
	}
	categoryID, err := queryUint(c, "category_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	q := pc.withCategory().Where("products.store_id = ? AND products.is_active = ?", storeID, true)
	if categoryID != nil {
		q = q.Where("products.category_id = ?", *categoryID)
	}
	products := []models.Product{}
	if err := q.Order("products.sort_order, products.id").Find(&products).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Products", products)
}

func (pc *ProductController) GetProductByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := pc.withCategory().Where("products.id = ?", id).Take(&product).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("product not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product", product)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name == nil || in.Price == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name and price are required"))
		return
	}
	product := models.Product{StoreID: middlewares.StoreID(c), IsActive: true}
	if err := in.apply(pc.DB, &product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := pc.DB.Create(&product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Product created", product)
}

func (pc *ProductController) load(c *gin.Context) (*models.Product, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var product models.Product
	if err := pc.DB.First(&product, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("product not found"))
		return nil, false
	}
	if _, ok := authorize(c, pc.Access, product.StoreID, services.PermMenuWrite); !ok {
		return nil, false
	}
	return &product, true
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	product, ok := pc.load(c)
	if !ok {
		return
	}
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.apply(pc.DB, product); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := pc.DB.Save(product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product updated", product)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	product, ok := pc.load(c)
	if !ok {
		return
	}
	if err := pc.DB.Delete(product).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", nil)
}
