package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/config"
	"github.com/wemarket/qr-order/database"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/realtime"
	"github.com/wemarket/qr-order/router"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	tokens *utils.TokenManager
	shops  int
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenSQLite(fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		PublicBaseURL:  "http://order.test",
	}
	tokens := utils.NewTokenManager("controller-test", time.Hour)
	r := router.SetupRouter(router.Deps{
		DB:        db,
		Config:    cfg,
		Tokens:    tokens,
		Access:    services.NewAccessService(db),
		Orders:    services.NewOrderService(db),
		Analytics: services.NewAnalyticsService(db),
		Hub:       realtime.NewHub(),
	})
	return &testServer{t: t, router: r, db: db, tokens: tokens}
}

// user creates an account directly and returns it with a valid token.
func (s *testServer) user(name string) (models.User, string) {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(s.t, err)
	u := models.User{Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com", Password: string(hash)}
	require.NoError(s.t, s.db.Create(&u).Error)
	token, err := s.tokens.GenerateToken(u.ID, u.Email)
	require.NoError(s.t, err)
	return u, token
}

func (s *testServer) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// call performs the request, asserts the status and decodes data into out.
func (s *testServer) call(method, path, token string, body interface{}, want int, out interface{}) envelope {
	s.t.Helper()
	w := s.request(method, path, token, body)
	require.Equal(s.t, want, w.Code, "%s %s: %s", method, path, w.Body.String())
	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	if out != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, out))
	}
	return env
}

// shop is a store with an owner and one member of every staff role. Users of
// the second and later shops get a numeric suffix.
type shop struct {
	store   models.Store
	owner   string
	admin   string
	manager string
	staff   string
	kitchen string
	staffID uint
	table   models.Table
	burger  models.Product
	fries   models.Product
}

func (s *testServer) shop() *shop {
	s.t.Helper()
	sh := &shop{}
	s.shops++
	suffix := ""
	if s.shops > 1 {
		suffix = fmt.Sprintf(" %d", s.shops)
	}
	_, sh.owner = s.user("Owner" + suffix)
	s.call(http.MethodPost, "/api/stores", sh.owner, map[string]interface{}{"name": "Hanok Table"}, http.StatusCreated, &sh.store)

	for _, m := range []struct {
		name  string
		role  string
		token *string
	}{
		{"Admin", models.RoleAdmin, &sh.admin},
		{"Manager", models.RoleManager, &sh.manager},
		{"Staff", models.RoleStaff, &sh.staff},
		{"Kitchen", models.RoleKitchen, &sh.kitchen},
	} {
		u, token := s.user(m.name + suffix)
		require.NoError(s.t, s.db.Create(&models.StoreStaff{StoreID: sh.store.ID, UserID: u.ID, Role: m.role, IsActive: true}).Error)
		*m.token = token
		if m.role == models.RoleStaff {
			sh.staffID = u.ID
		}
	}

	s.call(http.MethodPost, "/api/tables", sh.owner, map[string]interface{}{"store_id": sh.store.ID, "name": "A1"}, http.StatusCreated, &sh.table)
	s.call(http.MethodPost, "/api/products", sh.owner, map[string]interface{}{
		"store_id": sh.store.ID, "name": "Bulgogi Burger", "price": 8000, "cooking_time": 12,
	}, http.StatusCreated, &sh.burger)
	s.call(http.MethodPost, "/api/products", sh.owner, map[string]interface{}{
		"store_id": sh.store.ID, "name": "Fries", "price": 2500,
	}, http.StatusCreated, &sh.fries)
	return sh
}

func (sh *shop) orderBody() map[string]interface{} {
	return map[string]interface{}{
		"store_id": sh.store.ID,
		"table_id": sh.table.ID,
		"items": []map[string]interface{}{
			{"product_id": sh.burger.ID, "product_name": "Bulgogi Burger", "price": 8000, "quantity": 1},
			{"product_id": sh.fries.ID, "product_name": "Fries", "price": 2500, "quantity": 2},
		},
	}
}

func path(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
