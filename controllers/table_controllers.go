package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

type TableController struct {
	DB            *gorm.DB
	Access        *services.AccessService
	PublicBaseURL string
}

func NewTableController(db *gorm.DB, access *services.AccessService, publicBaseURL string) *TableController {
	return &TableController{DB: db, Access: access, PublicBaseURL: publicBaseURL}
}

type tableInput struct {
	StoreID    uint    `json:"store_id"`
	Name       *string `json:"name"`
	Capacity   *int    `json:"capacity"`
	IsOccupied *bool   `json:"is_occupied"`
	IsActive   *bool   `json:"is_active"`
}

func (in tableInput) apply(t *models.Table) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return errors.New("name must not be empty")
		}
		t.Name = name
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			return errors.New("capacity must be positive")
		}
		t.Capacity = *in.Capacity
	}
	if in.IsOccupied != nil {
		t.IsOccupied = *in.IsOccupied
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return nil
}

// GetTables lists every table of a store.
func (tc *TableController) GetTables(c *gin.Context) {
	storeID, ok := idParam(c, "storeId")
	if !ok {
		return
	}
	tables := []models.Table{}
	if err := tc.DB.Where("store_id = ?", storeID).Order("id").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables", tables)
}

// GetTableByQR resolves a scanned QR token. Inactive tables and tables of
// inactive stores are rejected.
func (tc *TableController) GetTableByQR(c *gin.Context) {
	var table models.TableWithStore
	err := tc.DB.Model(&models.Table{}).
		Select("tables.*, stores.name AS store_name, stores.is_active AS store_active").
		Joins("JOIN stores ON stores.id = tables.store_id").
		Where("tables.qr_code = ?", c.Param("qrCode")).
		Take(&table).Error
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}
	if !table.IsActive || !table.StoreActive {
		utils.RespondError(c, http.StatusBadRequest, errors.New("table is currently unavailable"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table", table)
}

// CreateTable -> issues a fresh QR token for the new table
func (tc *TableController) CreateTable(c *gin.Context) {
	var in tableInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if in.Name == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	token, err := utils.NewQRToken()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	table := models.Table{StoreID: middlewares.StoreID(c), QRCode: token, Capacity: 4, IsActive: true}
	if err := in.apply(&table); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("New table created: %s (store=%d)", table.Name, table.StoreID)
	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

func (tc *TableController) load(c *gin.Context, permission string) (*models.Table, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return nil, false
	}
	if _, ok := authorize(c, tc.Access, table.StoreID, permission); !ok {
		return nil, false
	}
	return &table, true
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	table, ok := tc.load(c, services.PermTableManage)
	if !ok {
		return
	}
	var in tableInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := in.apply(table); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := tc.DB.Save(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// RegenerateQR invalidates the printed code by issuing a new token.
func (tc *TableController) RegenerateQR(c *gin.Context) {
	table, ok := tc.load(c, services.PermTableManage)
	if !ok {
		return
	}
	token, err := utils.NewQRToken()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := tc.DB.Model(table).Update("qr_code", token).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "QR code regenerated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	table, ok := tc.load(c, services.PermTableManage)
	if !ok {
		return
	}
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("table_id = ?", table.ID).Delete(&models.TableAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("table_id = ?", table.ID).Update("table_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(table).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", nil)
}

// GetTableQR serves the table's QR code as a PNG image.
func (tc *TableController) GetTableQR(c *gin.Context) {
	table, ok := tc.load(c, services.PermTableRead)
	if !ok {
		return
	}
	png, err := services.RenderTableQR(tc.PublicBaseURL, *table, services.QRImageSize)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=table-%d.png", table.ID))
	c.Data(http.StatusOK, "image/png", png)
}
