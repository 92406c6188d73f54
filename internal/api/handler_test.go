package api

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
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shopfloor-status-backend/config"
	"shopfloor-status-backend/internal/db"
	"shopfloor-status-backend/internal/model"
	"shopfloor-status-backend/internal/mw"
	"shopfloor-status-backend/internal/store"
)

const (
	testDeviceKey = "test-device-key"
	testJWTSecret = "test-jwt-secret"
)

// testEnv is a full router over an in-memory database with a controllable
// clock.
type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := testDB.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.Migrate(testDB))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	env := &testEnv{db: testDB, now: time.Now().UTC()}

	handler := NewHandler(HandlerOptions{
		Store:            store.NewGormStore(testDB),
		Log:              logger,
		OfflineThreshold: 30 * time.Second,
		JWTSecret:        testJWTSecret,
		TokenTTL:         time.Hour,
		Now:              func() time.Time { return env.now },
	})

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1
	cfg.Auth.DeviceAPIKey = testDeviceKey
	cfg.Auth.JWTSecret = testJWTSecret

	env.router = NewRouter(handler, cfg)
	return env
}

func (env *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func deviceHeaders() map[string]string {
	return map[string]string{"X-API-Key": testDeviceKey}
}

func bearer(t *testing.T, role string) map[string]string {
	t.Helper()
	token, err := mw.SignToken(testJWTSecret, time.Hour, "test."+role, "Test "+role, role)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPostStatus_DeviceKeyRequired(t *testing.T) {
	env := newTestEnv(t)
	hb := map[string]any{"machineId": 1, "machineName": "M1", "status": "running"}

	w := env.request(t, http.MethodPost, "/api/status", hb, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/status", hb, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/status", hb, deviceHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestPostStatus_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/status", map[string]any{"machineName": "M1", "status": "running"}, deviceHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/status", map[string]any{"machineId": 1, "machineName": "M1", "status": "levitating"}, deviceHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOfflineOverlayOnReads(t *testing.T) {
	env := newTestEnv(t)

	hb := map[string]any{"machineId": 1, "machineName": "M1", "status": "running", "cycleCount": 120}
	w := env.request(t, http.MethodPost, "/api/status", hb, deviceHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	// Fresh heartbeat: the reported status stands.
	w = env.request(t, http.MethodGet, "/api/machines", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "running", list[0]["status"])

	// Forty silent seconds later the machine displays offline even though
	// the stored status is untouched.
	env.now = env.now.Add(40 * time.Second)

	w = env.request(t, http.MethodGet, "/api/machines", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "offline", list[0]["status"])
	assert.Equal(t, float64(40), list[0]["secondsSinceSeen"])

	var stored model.Machine
	require.NoError(t, env.db.First(&stored, "machine_id = ?", 1).Error)
	assert.Equal(t, model.StatusRunning, stored.Status, "the overlay is read-time only")

	w = env.request(t, http.MethodGet, "/api/machines/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	machine := body["machine"].(map[string]any)
	assert.Equal(t, "offline", machine["status"])

	w = env.request(t, http.MethodGet, "/api/summary", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["offline"])
	assert.Equal(t, float64(0), body["running"])
	assert.Equal(t, float64(120), body["totalCycles"])
}

func TestManualStatusFlow(t *testing.T) {
	env := newTestEnv(t)

	hb := map[string]any{"machineId": 5, "machineName": "M5", "status": "running", "cycleCount": 10}
	require.Equal(t, http.StatusOK, env.request(t, http.MethodPost, "/api/status", hb, deviceHeaders()).Code)

	cmd := map[string]any{"status": "idle", "updatedBy": "leader.a"}

	// The command paths are operator-only.
	w := env.request(t, http.MethodPost, "/api/machines/5/manual-status", cmd, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.request(t, http.MethodPost, "/api/machines/5/manual-status", cmd, bearer(t, model.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Rejected while the machine is still device-driven.
	w = env.request(t, http.MethodPost, "/api/machines/5/manual-status", cmd, bearer(t, model.RoleLineLeader))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "manual mode")

	w = env.request(t, http.MethodPost, "/api/machines/5/input-mode", map[string]any{"mode": "manual"}, bearer(t, model.RoleLineLeader))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/machines/5/manual-status", cmd, bearer(t, model.RoleLineLeader))
	assert.Equal(t, http.StatusOK, w.Code)

	var m model.Machine
	require.NoError(t, env.db.First(&m, "machine_id = ?", 5).Error)
	assert.Equal(t, model.StatusIdle, m.Status)
	require.NotNil(t, m.StatusUpdatedBy)
	assert.Equal(t, "leader.a", *m.StatusUpdatedBy)
}

func TestMachineConfigAssignment(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&model.Machine{MachineID: 10, MachineName: "M10", Status: model.StatusIdle, InputMode: model.InputModeAuto, PartsPerCycle: 1}).Error)
	require.NoError(t, env.db.Create(&model.Part{PartNumber: "P-100", PartName: "Housing Cover"}).Error)
	require.NoError(t, env.db.Create(&model.MachinePart{MachineID: 10, PartNumber: "P-100", CavityPlan: 4}).Error)
	require.NoError(t, env.db.Create(&model.ProductionOrder{OrderNumber: "ORD-1", PartNumber: "P-100", QuantityRequired: 1000, Status: model.OrderPending}).Error)

	w := env.request(t, http.MethodPost, "/api/machines/10/config", map[string]any{"productionOrder": "ORD-1"}, bearer(t, model.RolePlanner))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ORD-1", data["productionOrder"])
	assert.Equal(t, "Housing Cover", data["partName"])
	assert.Equal(t, float64(4), data["partsPerCycle"])

	w = env.request(t, http.MethodPost, "/api/machines/10/config", map[string]any{"productionOrder": "ORD-404"}, bearer(t, model.RolePlanner))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Clearing reverts the linked order to the pool.
	w = env.request(t, http.MethodPost, "/api/machines/10/config", map[string]any{"productionOrder": nil}, bearer(t, model.RolePlanner))
	require.Equal(t, http.StatusOK, w.Code)

	var o model.ProductionOrder
	require.NoError(t, env.db.First(&o, "order_number = ?", "ORD-1").Error)
	assert.Equal(t, model.OrderPending, o.Status)
}

func TestOrderEndpoints(t *testing.T) {
	env := newTestEnv(t)
	order := map[string]any{"orderNumber": "ORD-7", "partNumber": "P-7", "quantityRequired": 100}

	w := env.request(t, http.MethodPost, "/api/orders", order, bearer(t, model.RolePlanner))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, "/api/orders", order, bearer(t, model.RolePlanner))
	assert.Equal(t, http.StatusConflict, w.Code, "duplicate order numbers are rejected")

	w = env.request(t, http.MethodPost, "/api/orders", order, bearer(t, model.RoleLineLeader))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMachineAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	machine := map[string]any{"machineName": "New Press", "tonnage": 180}

	w := env.request(t, http.MethodPost, "/api/machines", machine, bearer(t, model.RolePlanner))
	assert.Equal(t, http.StatusForbidden, w.Code, "machine registry writes are admin-only")

	w = env.request(t, http.MethodPost, "/api/machines", machine, bearer(t, model.RoleAdmin))
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	id := int(body["machineId"].(float64))
	assert.Equal(t, float64(1), body["partsPerCycle"])

	// Runtime fields are not patchable through the admin path.
	w = env.request(t, http.MethodPut, fmt.Sprintf("/api/machines/%d", id),
		map[string]any{"machineName": "Renamed Press", "status": "running", "cycleCount": 9999},
		bearer(t, model.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)

	var m model.Machine
	require.NoError(t, env.db.First(&m, "machine_id = ?", id).Error)
	assert.Equal(t, "Renamed Press", m.MachineName)
	assert.Equal(t, model.StatusOffline, m.Status)
	assert.Zero(t, m.CycleCount)

	w = env.request(t, http.MethodDelete, fmt.Sprintf("/api/machines/%d", id), nil, bearer(t, model.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed Press")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)
	require.NoError(t, env.db.Create(&model.User{
		Username:     "planner.a",
		PasswordHash: &hashStr,
		Name:         "Planner A",
		Role:         model.RolePlanner,
		IsActive:     true,
	}).Error)

	w := env.request(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "planner.a", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "nobody", "password": "secret123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "planner.a", "password": "secret123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	token, ok := body["token"].(string)
	require.True(t, ok)

	w = env.request(t, http.MethodGet, "/api/auth/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "planner.a", body["username"])
	assert.Equal(t, model.RolePlanner, body["role"])

	var user model.User
	require.NoError(t, env.db.First(&user, "username = ?", "planner.a").Error)
	assert.NotNil(t, user.LastLoginAt)
}

func TestProductionLogLifecycle(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&model.Machine{MachineID: 20, MachineName: "M20", Status: model.StatusIdle, InputMode: model.InputModeAuto, PartsPerCycle: 1}).Error)
	require.NoError(t, env.db.Create(&model.ProductionOrder{OrderNumber: "ORD-20", PartNumber: "P-200", QuantityRequired: 300, Status: model.OrderAssigned}).Error)
	require.NoError(t, env.db.Create(&model.Shift{Name: "Day", StartTime: "06:00", EndTime: "14:00", IsActive: true}).Error)

	entry := map[string]any{
		"machineId":        20,
		"orderNumber":      "ORD-20",
		"shiftId":          1,
		"shiftDate":        "2026-08-30",
		"quantityProduced": 50,
	}
	w := env.request(t, http.MethodPost, "/api/production-logs", entry, bearer(t, model.RoleLineLeader))
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	logID := int(body["id"].(float64))

	var o model.ProductionOrder
	require.NoError(t, env.db.First(&o, "order_number = ?", "ORD-20").Error)
	assert.Equal(t, 50, o.QuantityCompleted)

	// The edit credits the 20-piece difference, not another 70.
	w = env.request(t, http.MethodPatch, fmt.Sprintf("/api/production-logs/%d", logID),
		map[string]any{"quantityProduced": 70}, bearer(t, model.RoleLineLeader))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.First(&o, "order_number = ?", "ORD-20").Error)
	assert.Equal(t, 70, o.QuantityCompleted)

	w = env.request(t, http.MethodGet, "/api/production-logs?machineId=20", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
