package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tubegate/tubegate/internal/middleware"
	"github.com/tubegate/tubegate/pkg/models"
)

// MockKeyStore is a mock implementation of KeyStore
type MockKeyStore struct {
	mock.Mock
}

func (m *MockKeyStore) PutKey(ctx context.Context, key *models.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKeyStore) DeleteKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockKeyStore) ListKeys(ctx context.Context) ([]*models.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.APIKey), args.Error(1)
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (*models.UsageStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageStats), args.Error(1)
}

func (m *MockStatsService) RecentLogs(ctx context.Context, limit int) ([]*models.UsageLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UsageLogEntry), args.Error(1)
}

// MockMaintenance is a mock implementation of MaintenanceRunner
type MockMaintenance struct {
	mock.Mock
}

func (m *MockMaintenance) RunSweep(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockMaintenance) RunCleanup(ctx context.Context) (int64, int, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Int(1), args.Error(2)
}

// adminRouter registers the admin handlers without AdminAuth so handler
// behavior is tested in isolation
func adminRouter(api *API) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/keys", api.listKeys)
	router.POST("/admin/keys", api.createKey)
	router.DELETE("/admin/keys/:key", api.deleteKey)
	router.GET("/admin/stats", api.adminStats)
	router.GET("/admin/logs", api.adminLogs)
	router.POST("/admin/maintenance", api.runMaintenance)
	router.POST("/admin/cleanup", api.runCleanup)
	return router
}

func TestListKeysReturnsFullStrings(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{keys: mockKeys, log: newTestLogger(t)}
	router := adminRouter(api)

	fullKey := "4f9d2a6b8c1e3f5a7b9d0c2e4f6a8b1c3d5e7f9a0b2c4d6e8f1a3b5c7d9e0f2a"
	records := []*models.APIKey{
		{Key: fullKey, Name: "mobile app", Status: models.KeyStatusActive, DailyLimit: 100},
		{Key: "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66", Name: "retired", Status: models.KeyStatusExpired, DailyLimit: 50},
	}
	mockKeys.On("ListKeys", mock.Anything).Return(records, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/keys", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), response["count"])

	keys := response["keys"].([]interface{})
	first := keys[0].(map[string]interface{})
	// The admin surface is the only place the full string is recoverable
	assert.Equal(t, fullKey, first["key"])

	mockKeys.AssertExpectations(t)
}

func TestListKeysStoreError(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{keys: mockKeys, log: newTestLogger(t)}
	router := adminRouter(api)

	mockKeys.On("ListKeys", mock.Anything).Return(nil, errors.New("connection refused"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/keys", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Internal server error"}`, w.Body.String())
}

func TestCreateKeyAppliesDefaults(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{
		keys:  mockKeys,
		quota: quotaDefaults{DailyLimit: 100, ExpiryDays: 365},
		log:   newTestLogger(t),
	}
	router := adminRouter(api)

	var stored *models.APIKey
	mockKeys.On("PutKey", mock.Anything, mock.AnythingOfType("*models.APIKey")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.APIKey)
		}).
		Return(nil)

	body, _ := json.Marshal(map[string]interface{}{"name": "ci pipeline"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/keys", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, stored)
	assert.Len(t, stored.Key, 64)
	assert.Equal(t, "ci pipeline", stored.Name)
	assert.Equal(t, 100, stored.DailyLimit)
	assert.Equal(t, models.KeyStatusActive, stored.Status)
	assert.Equal(t, "admin", stored.CreatedBy)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), stored.ValidUntil, time.Minute)
	assert.True(t, stored.ResetAt.After(time.Now()))

	// The minted key comes back in full; it is not recoverable later
	// outside the list endpoint
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, stored.Key, response["key"])

	mockKeys.AssertExpectations(t)
}

func TestCreateKeyRecordsCreator(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{
		keys:  mockKeys,
		quota: quotaDefaults{DailyLimit: 100, ExpiryDays: 365},
		log:   newTestLogger(t),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/admin/keys", func(c *gin.Context) {
		c.Set(middleware.AuthContextKey, &models.APIKey{Name: "root", IsAdmin: true})
	}, api.createKey)

	var stored *models.APIKey
	mockKeys.On("PutKey", mock.Anything, mock.AnythingOfType("*models.APIKey")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.APIKey)
		}).
		Return(nil)

	body, _ := json.Marshal(map[string]interface{}{"name": "reporting"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/keys", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, stored)
	assert.Equal(t, "root", stored.CreatedBy)
}

func TestCreateKeyExpiryValidation(t *testing.T) {
	tests := []struct {
		name       string
		expiryDays int
		wantStatus int
	}{
		{name: "too large", expiryDays: 5000, wantStatus: http.StatusBadRequest},
		{name: "negative", expiryDays: -2, wantStatus: http.StatusBadRequest},
		{name: "upper bound", expiryDays: 3650, wantStatus: http.StatusCreated},
		{name: "lower bound", expiryDays: 1, wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockKeys := new(MockKeyStore)
			api := &API{
				keys:  mockKeys,
				quota: quotaDefaults{DailyLimit: 100, ExpiryDays: 365},
				log:   newTestLogger(t),
			}
			router := adminRouter(api)

			mockKeys.On("PutKey", mock.Anything, mock.Anything).Return(nil).Maybe()

			body, _ := json.Marshal(map[string]interface{}{"name": "bounds", "expiry_days": tt.expiryDays})
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/admin/keys", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.JSONEq(t, `{"error": "expiry_days must be between 1 and 3650"}`, w.Body.String())
				mockKeys.AssertNotCalled(t, "PutKey", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCreateKeyZeroExpiryUsesDefault(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{
		keys:  mockKeys,
		quota: quotaDefaults{DailyLimit: 100, ExpiryDays: 30},
		log:   newTestLogger(t),
	}
	router := adminRouter(api)

	var stored *models.APIKey
	mockKeys.On("PutKey", mock.Anything, mock.AnythingOfType("*models.APIKey")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.APIKey)
		}).
		Return(nil)

	body, _ := json.Marshal(map[string]interface{}{"name": "short lived", "daily_limit": 10})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/keys", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, stored)
	assert.Equal(t, 10, stored.DailyLimit)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), stored.ValidUntil, time.Minute)
}

func TestCreateKeyInvalidBody(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{keys: mockKeys, log: newTestLogger(t)}
	router := adminRouter(api)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/keys", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Invalid request body"}`, w.Body.String())
	mockKeys.AssertNotCalled(t, "PutKey", mock.Anything, mock.Anything)
}

func TestDeleteKey(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{keys: mockKeys, log: newTestLogger(t)}
	router := adminRouter(api)

	target := "4f9d2a6b8c1e3f5a7b9d0c2e4f6a8b1c3d5e7f9a0b2c4d6e8f1a3b5c7d9e0f2a"
	mockKeys.On("DeleteKey", mock.Anything, target).Return(true, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/admin/keys/"+target, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Key deleted"}`, w.Body.String())
	mockKeys.AssertExpectations(t)
}

func TestDeleteKeyNotFound(t *testing.T) {
	mockKeys := new(MockKeyStore)
	api := &API{keys: mockKeys, log: newTestLogger(t)}
	router := adminRouter(api)

	mockKeys.On("DeleteKey", mock.Anything, "missing").Return(false, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/admin/keys/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Key not found"}`, w.Body.String())
}

func TestAdminStatsIncludesQueueDepth(t *testing.T) {
	mockStats := new(MockStatsService)
	api := &API{
		stats: mockStats,
		queue: stubQueue{open: true, depth: 7},
		log:   newTestLogger(t),
	}
	router := adminRouter(api)

	mockStats.On("Stats", mock.Anything).Return(&models.UsageStats{
		TotalKeys:     5,
		ActiveKeys:    4,
		ExpiredKeys:   1,
		RequestsToday: 42,
		ByEndpoint:    []models.EndpointCount{{Endpoint: "/youtube", Count: 40}},
		TopKeys:       []models.KeyCount{{APIKey: "4f9d2a6b", Count: 30}},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(5), response["total_keys"])
	assert.Equal(t, float64(42), response["requests_today"])
	assert.Equal(t, float64(7), response["queue_depth"])

	mockStats.AssertExpectations(t)
}

func TestAdminStatsWithoutQueue(t *testing.T) {
	mockStats := new(MockStatsService)
	api := &API{stats: mockStats, log: newTestLogger(t)}
	router := adminRouter(api)

	mockStats.On("Stats", mock.Anything).Return(&models.UsageStats{TotalKeys: 1, ActiveKeys: 1}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/stats", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	_, present := response["queue_depth"]
	assert.False(t, present)
}

func TestAdminLogs(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{name: "default limit", query: "", wantLimit: 0},
		{name: "explicit limit", query: "?limit=25", wantLimit: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStats := new(MockStatsService)
			api := &API{stats: mockStats, log: newTestLogger(t)}
			router := adminRouter(api)

			entries := []*models.UsageLogEntry{
				{ID: 1, APIKey: "4f9d2a6b", Endpoint: "/youtube", Query: "295", StatusCode: 200},
			}
			mockStats.On("RecentLogs", mock.Anything, tt.wantLimit).Return(entries, nil)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/admin/logs"+tt.query, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)
			assert.Equal(t, float64(1), response["count"])

			mockStats.AssertExpectations(t)
		})
	}
}

func TestAdminLogsInvalidLimit(t *testing.T) {
	mockStats := new(MockStatsService)
	api := &API{stats: mockStats, log: newTestLogger(t)}
	router := adminRouter(api)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/logs?limit=abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "Invalid limit parameter"}`, w.Body.String())
	mockStats.AssertNotCalled(t, "RecentLogs", mock.Anything, mock.Anything)
}

func TestRunMaintenanceHandler(t *testing.T) {
	mockMaint := new(MockMaintenance)
	api := &API{maint: mockMaint, log: newTestLogger(t)}
	router := adminRouter(api)

	mockMaint.On("RunSweep", mock.Anything).Return(3, 5, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/maintenance", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"expired": 3, "reset": 5}`, w.Body.String())
	mockMaint.AssertExpectations(t)
}

func TestRunMaintenanceHandlerError(t *testing.T) {
	mockMaint := new(MockMaintenance)
	api := &API{maint: mockMaint, log: newTestLogger(t)}
	router := adminRouter(api)

	mockMaint.On("RunSweep", mock.Anything).Return(0, 0, errors.New("store down"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/maintenance", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "Internal server error"}`, w.Body.String())
}

func TestRunCleanupHandler(t *testing.T) {
	mockMaint := new(MockMaintenance)
	api := &API{maint: mockMaint, log: newTestLogger(t)}
	router := adminRouter(api)

	mockMaint.On("RunCleanup", mock.Anything).Return(int64(12), 4, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/cleanup", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logs_deleted": 12, "refs_pruned": 4}`, w.Body.String())
	mockMaint.AssertExpectations(t)
}
