package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

// AssignmentController manages which staff member serves which table.
type AssignmentController struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewAssignmentController(db *gorm.DB, access *services.AccessService) *AssignmentController {
	return &AssignmentController{DB: db, Access: access}
}

func (ac *AssignmentController) listQuery(storeID uint) *gorm.DB {
	return ac.DB.Model(&models.TableAssignment{}).
		Select("table_assignments.*, tables.name AS table_name, users.name AS staff_name").
		Joins("JOIN tables ON tables.id = table_assignments.table_id").
		Joins("JOIN users ON users.id = table_assignments.staff_user_id").
		Where("table_assignments.store_id = ?", storeID).
		Order("tables.name")
}

func (ac *AssignmentController) GetAssignments(c *gin.Context) {
	out := []models.TableAssignment{}
	if err := ac.listQuery(middlewares.StoreID(c)).Find(&out).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table assignments", out)
}

// MyTables lists the tables assigned to the caller.
func (ac *AssignmentController) MyTables(c *gin.Context) {
	out := []models.TableAssignment{}
	err := ac.listQuery(middlewares.StoreID(c)).
		Where("table_assignments.staff_user_id = ?", middlewares.CurrentUserID(c)).
		Find(&out).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "My tables", out)
}

// Assign sets or replaces the staff member of a table.
func (ac *AssignmentController) Assign(c *gin.Context) {
	storeID := middlewares.StoreID(c)
	tableID, ok := idParam(c, "tableId")
	if !ok {
		return
	}
	var body struct {
		StaffUserID uint `json:"staff_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("staff_user_id is required"))
		return
	}

	var table models.Table
	if err := ac.DB.Where("id = ? AND store_id = ?", tableID, storeID).First(&table).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}
	role, err := ac.Access.ResolveRole(c.Request.Context(), body.StaffUserID, storeID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if role == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("user is not a member of this store"))
		return
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.TableAssignment
		err := tx.Where("store_id = ? AND table_id = ?", storeID, tableID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.TableAssignment{
				StoreID:     storeID,
				TableID:     tableID,
				StaffUserID: body.StaffUserID,
				AssignedAt:  time.Now(),
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"staff_user_id": body.StaffUserID,
			"assigned_at":   time.Now(),
		}).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var assignment models.TableAssignment
	if err := ac.listQuery(storeID).Where("table_assignments.table_id = ?", tableID).Take(&assignment).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table assigned", assignment)
}

func (ac *AssignmentController) Unassign(c *gin.Context) {
	tableID, ok := idParam(c, "tableId")
	if !ok {
		return
	}
	res := ac.DB.Where("store_id = ? AND table_id = ?", middlewares.StoreID(c), tableID).
		Delete(&models.TableAssignment{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("table has no assigned staff"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Assignment removed", nil)
}
