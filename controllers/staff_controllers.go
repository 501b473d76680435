package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

type StaffController struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewStaffController(db *gorm.DB, access *services.AccessService) *StaffController {
	return &StaffController{DB: db, Access: access}
}

// StaffMember is a store_staff row joined with its user.
type StaffMember struct {
	ID        uint      `json:"id"`
	StoreID   uint      `json:"store_id"`
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	RoleLabel string    `json:"role_label"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type RoleInfo struct {
	Role        string   `json:"role"`
	Label       string   `json:"label"`
	Permissions []string `json:"permissions"`
}

type addStaffInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"required"`
}

type updateRoleInput struct {
	Role string `json:"role" binding:"required"`
}

func (sc *StaffController) member(db *gorm.DB, id uint) (*StaffMember, error) {
	var m StaffMember
	err := db.Table("store_staff").
		Select("store_staff.id, store_staff.store_id, store_staff.user_id, users.name, users.email, store_staff.role, store_staff.is_active, store_staff.created_at").
		Joins("JOIN users ON users.id = store_staff.user_id").
		Where("store_staff.id = ?", id).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	m.RoleLabel = services.RoleLabels[m.Role]
	return &m, nil
}

// GetStaff lists the active staff of a store.
func (sc *StaffController) GetStaff(c *gin.Context) {
	members := []StaffMember{}
	err := sc.DB.WithContext(c.Request.Context()).Table("store_staff").
		Select("store_staff.id, store_staff.store_id, store_staff.user_id, users.name, users.email, store_staff.role, store_staff.is_active, store_staff.created_at").
		Joins("JOIN users ON users.id = store_staff.user_id").
		Where("store_staff.store_id = ? AND store_staff.is_active = ?", middlewares.StoreID(c), true).
		Order("store_staff.id").
		Scan(&members).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	for i := range members {
		members[i].RoleLabel = services.RoleLabels[members[i].Role]
	}
	utils.RespondJSON(c, http.StatusOK, "Staff", members)
}

// AddStaff adds a user to the store by email, registering the user when the
// address is unknown. Inactive members are reactivated with the new role.
func (sc *StaffController) AddStaff(c *gin.Context) {
	var in addStaffInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.IsStaffRole(in.Role) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid role"))
		return
	}
	if in.Role == models.RoleAdmin && middlewares.StoreRole(c) != models.RoleOwner {
		utils.RespondError(c, http.StatusForbidden, errors.New("only the owner can grant the admin role"))
		return
	}
	storeID := middlewares.StoreID(c)
	email := normalizeEmail(in.Email)

	var staffID uint
	err := sc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			name := strings.TrimSpace(in.Name)
			if name == "" || len(in.Password) < 6 {
				return &services.CustomError{Kind: services.ErrValidation, Message: "name and a password of at least 6 characters are required for a new user"}
			}
			hashed, err := hashPassword(in.Password)
			if err != nil {
				return err
			}
			user = models.User{Name: name, Email: email, Password: hashed}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		var store models.Store
		if err := tx.Select("id", "owner_id").First(&store, storeID).Error; err != nil {
			return err
		}
		if store.OwnerID == user.ID {
			return &services.CustomError{Kind: services.ErrValidation, Message: "the owner cannot be added as staff"}
		}

		var existing models.StoreStaff
		err = tx.Where("store_id = ? AND user_id = ?", storeID, user.ID).First(&existing).Error
		switch {
		case err == nil && existing.IsActive:
			return &services.CustomError{Kind: services.ErrValidation, Message: "user is already a staff member"}
		case err == nil:
			staffID = existing.ID
			return tx.Model(&existing).Updates(map[string]interface{}{"role": in.Role, "is_active": true}).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		row := models.StoreStaff{StoreID: storeID, UserID: user.ID, Role: in.Role, IsActive: true}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		staffID = row.ID
		return nil
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	m, err := sc.member(sc.DB, staffID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"store_id": storeID,
		"user_id":  m.UserID,
		"role":     m.Role,
	}).Info("staff added")
	utils.RespondJSON(c, http.StatusCreated, "Staff added", m)
}

// loadForManage finds the staff row behind :id and checks that the caller may
// manage its store.
func (sc *StaffController) loadForManage(c *gin.Context) (*models.StoreStaff, string, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, "", false
	}
	var row models.StoreStaff
	if err := sc.DB.WithContext(c.Request.Context()).First(&row, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("staff member not found"))
		return nil, "", false
	}
	role, ok := authorize(c, sc.Access, row.StoreID, services.PermStaffManage)
	if !ok {
		return nil, "", false
	}
	return &row, role, true
}

func (sc *StaffController) UpdateRole(c *gin.Context) {
	row, callerRole, ok := sc.loadForManage(c)
	if !ok {
		return
	}
	var in updateRoleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.IsStaffRole(in.Role) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid role"))
		return
	}
	if (in.Role == models.RoleAdmin || row.Role == models.RoleAdmin) && callerRole != models.RoleOwner {
		utils.RespondError(c, http.StatusForbidden, errors.New("only the owner can change the admin role"))
		return
	}
	if err := sc.DB.Model(row).Update("role", in.Role).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	m, err := sc.member(sc.DB, row.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role updated", m)
}

// RemoveStaff deactivates the membership and drops the member's table
// assignments. The user account is kept.
func (sc *StaffController) RemoveStaff(c *gin.Context) {
	row, callerRole, ok := sc.loadForManage(c)
	if !ok {
		return
	}
	if row.Role == models.RoleAdmin && callerRole != models.RoleOwner {
		utils.RespondError(c, http.StatusForbidden, errors.New("only the owner can remove an admin"))
		return
	}
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(row).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Where("store_id = ? AND staff_user_id = ?", row.StoreID, row.UserID).
			Delete(&models.TableAssignment{}).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Staff removed", nil)
}

func (sc *StaffController) MyStores(c *gin.Context) {
	out, err := membershipsFor(sc.DB.WithContext(c.Request.Context()), middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "My stores", out)
}

// MyRole reports the caller's role and permissions in a store.
func (sc *StaffController) MyRole(c *gin.Context) {
	storeID, ok := idParam(c, "storeId")
	if !ok {
		return
	}
	role, err := sc.Access.ResolveRole(c.Request.Context(), middlewares.CurrentUserID(c), storeID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if role == "" {
		utils.RespondError(c, http.StatusForbidden, errors.New("no access to this store"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role", gin.H{
		"store_id":    storeID,
		"role":        role,
		"role_label":  services.RoleLabels[role],
		"permissions": services.PermissionsFor(role),
	})
}

// Roles is the role catalogue with each role's permissions.
func (sc *StaffController) Roles(c *gin.Context) {
	roles := append([]string{models.RoleOwner}, models.StaffRoles...)
	out := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleInfo{Role: r, Label: services.RoleLabels[r], Permissions: services.PermissionsFor(r)})
	}
	utils.RespondJSON(c, http.StatusOK, "Roles", out)
}
