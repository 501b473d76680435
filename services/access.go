package services

import (
	"context"
	"errors"

	"github.com/wemarket/qr-order/models"
	"gorm.io/gorm"
)

// Permission names checked against a store role.
const (
	PermStoreSettings = "store:settings"
	PermStoreDelete   = "store:delete"
	PermStaffManage   = "staff:manage"
	PermMenuRead      = "menu:read"
	PermMenuWrite     = "menu:write"
	PermCategoryRead  = "category:read"
	PermCategoryWrite = "category:write"
	PermTableRead     = "table:read"
	PermTableManage   = "table:manage"
	PermTableAssign   = "table:assign"
	PermOrderRead     = "order:read"
	PermOrderWrite    = "order:write"
	PermOrderDelete   = "order:delete"
	PermStatsRead     = "stats:read"
	PermAnalyticsRead = "analytics:read"
)

var allRoles = []string{models.RoleOwner, models.RoleAdmin, models.RoleManager, models.RoleStaff, models.RoleKitchen}

// Permissions maps each permission to the roles allowed to use it. It is the
// only place role capabilities are defined.
var Permissions = map[string][]string{
	PermStoreSettings: {models.RoleOwner, models.RoleAdmin},
	PermStoreDelete:   {models.RoleOwner},
	PermStaffManage:   {models.RoleOwner, models.RoleAdmin},
	PermMenuRead:      allRoles,
	PermMenuWrite:     {models.RoleOwner, models.RoleAdmin, models.RoleManager},
	PermCategoryRead:  allRoles,
	PermCategoryWrite: {models.RoleOwner, models.RoleAdmin, models.RoleManager},
	PermTableRead:     allRoles,
	PermTableManage:   {models.RoleOwner, models.RoleAdmin},
	PermTableAssign:   {models.RoleOwner, models.RoleAdmin, models.RoleManager},
	PermOrderRead:     allRoles,
	PermOrderWrite:    {models.RoleOwner, models.RoleAdmin, models.RoleManager, models.RoleStaff},
	PermOrderDelete:   {models.RoleOwner, models.RoleAdmin},
	PermStatsRead:     {models.RoleOwner, models.RoleAdmin, models.RoleManager},
	PermAnalyticsRead: {models.RoleOwner},
}

// RoleLabels are display names for the role catalogue.
var RoleLabels = map[string]string{
	models.RoleOwner:   "Owner",
	models.RoleAdmin:   "Administrator",
	models.RoleManager: "Manager",
	models.RoleStaff:   "Staff",
	models.RoleKitchen: "Kitchen",
}

// Can reports whether role is allowed to use permission. Unknown permissions
// and the empty role are always denied.
func Can(role, permission string) bool {
	if role == "" {
		return false
	}
	for _, r := range Permissions[permission] {
		if r == role {
			return true
		}
	}
	return false
}

// PermissionsFor lists the permissions granted to role.
func PermissionsFor(role string) []string {
	var perms []string
	for _, p := range permissionOrder {
		if Can(role, p) {
			perms = append(perms, p)
		}
	}
	return perms
}

var permissionOrder = []string{
	PermStoreSettings, PermStoreDelete, PermStaffManage,
	PermMenuRead, PermMenuWrite, PermCategoryRead, PermCategoryWrite,
	PermTableRead, PermTableManage, PermTableAssign, PermOrderRead, PermOrderWrite, PermOrderDelete,
	PermStatsRead, PermAnalyticsRead,
}

type AccessService struct {
	db *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{db: db}
}

// ResolveRole returns the user's role in the store, or "" when the user has
// none. An unknown store also resolves to "".
func (s *AccessService) ResolveRole(ctx context.Context, userID, storeID uint) (string, error) {
	var store models.Store
	err := s.db.WithContext(ctx).Select("id", "owner_id").First(&store, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if store.OwnerID == userID {
		return models.RoleOwner, nil
	}

	var staff models.StoreStaff
	err = s.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ? AND is_active = ?", storeID, userID, true).
		First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return staff.Role, nil
}

// Authorize resolves the role and checks permission in one step.
func (s *AccessService) Authorize(ctx context.Context, userID, storeID uint, permission string) (string, error) {
	role, err := s.ResolveRole(ctx, userID, storeID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", forbiddenf("no access to this store")
	}
	if !Can(role, permission) {
		return role, forbiddenf("role %s lacks permission %s", role, permission)
	}
	return role, nil
}
