package container

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/dmt-records/internal/config"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	item := func(number, name string) []config.CatalogItem {
		return []config.CatalogItem{{Number: number, Name: name}}
	}
	return &config.Config{
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: 18080},
		Database:    config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "data", "dmt.db")},
		Translation: config.TranslationConfig{Provider: config.ProviderNone, Timeout: time.Second},
		Logger:      config.LoggerConfig{Level: "info"},
		Auth: config.AuthConfig{Tokens: []config.TokenConfig{
			{Token: "inspector", UserID: 2, FullName: "Ines", Role: "Inspector"},
			{Token: "operator", UserID: 3, FullName: "Oscar", Role: "Operator"},
			{Token: "tech", UserID: 4, FullName: "Tomas", Role: "Tech Engineer"},
			{Token: "quality", UserID: 5, FullName: "Quinn", Role: "Quality Engineer"},
		}},
		Seed: config.SeedConfig{Catalogs: map[string][]config.CatalogItem{
			"partnumber":     item("PN-1", "Blade"),
			"workcenter":     item("WC-1", "Machining"),
			"customer":       item("C-1", "Acme"),
			"preparedby":     item("PB-1", "Line"),
			"inspectionitem": item("II-1", "Dimensional"),
			"processcode":    item("PC-1", "Milling"),
			"disposition":    item("D-1", "Rework"),
			"failurecode":    item("F-1", "Out of tolerance"),
		}},
	}
}

func startContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func call(t *testing.T, c *Container, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	c.Server().Router().ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Translation.Provider = "babelfish"
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	assert.False(t, c.Ready())
	assert.Error(t, c.Run(context.Background()))

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_SeedsUsersAndCatalogs(t *testing.T) {
	c := startContainer(t)
	ctx := context.Background()

	names, err := c.Repositories().User.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Quinn", names[5])
	assert.Len(t, names, 4)

	user, err := c.Repositories().User.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "U0002", user.EmployeeNumber)

	dispositions, err := c.Repositories().Catalog.Names(ctx, entity.CatalogDisposition)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Rework"}, dispositions)
}

func TestContainer_RecordLifecycleOverHTTP(t *testing.T) {
	c := startContainer(t)

	status, resp := call(t, c, http.MethodPost, "/api/v1/records", "inspector", `{
		"part_number_id": 1, "work_center_id": 1, "customer_id": 1, "prepared_by_id": 1,
		"operation": "OP-10", "quantity": 3, "date": "2026-10-01",
		"inspection_item_id": 1, "process_code_id": 1,
		"defect_description": "scratch on flange"
	}`)
	require.Equal(t, http.StatusCreated, status, resp)
	record := resp["data"].(map[string]interface{})
	assert.Equal(t, "1001", record["report_number"])
	defect := record["defect_description"].(map[string]interface{})
	assert.Equal(t, "scratch on flange", defect["es"])

	status, resp = call(t, c, http.MethodPatch, "/api/v1/records/1", "operator", `{"operation": "OP-20"}`)
	assert.Equal(t, http.StatusForbidden, status, resp)

	status, _ = call(t, c, http.MethodPatch, "/api/v1/records/1", "operator", `{"analysis": "burr left by tool", "analysis_by_id": 3}`)
	assert.Equal(t, http.StatusOK, status)

	status, resp = call(t, c, http.MethodPatch, "/api/v1/records/1", "quality",
		`{"is_closed": true, "disposition_approval_date": "2026-10-05", "disposition_approved_by_id": 5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status, resp)

	status, _ = call(t, c, http.MethodPatch, "/api/v1/records/1", "tech",
		`{"final_disposition_id": 1, "failure_code_id": 1, "engineer_id": 4}`)
	assert.Equal(t, http.StatusOK, status)

	status, resp = call(t, c, http.MethodPatch, "/api/v1/records/1", "quality",
		`{"is_closed": true, "disposition_approval_date": "2026-10-05", "disposition_approved_by_id": 5}`)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, true, resp["data"].(map[string]interface{})["is_closed"])

	status, _ = call(t, c, http.MethodPatch, "/api/v1/records/1", "tech", `{"engineering_remarks": "late"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, resp = call(t, c, http.MethodGet, "/api/v1/records/1/history", "operator", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 4)
}

func TestContainer_SlowTranslationDoesNotBlockWriters(t *testing.T) {
	var hold atomic.Bool
	started := make(chan struct{}, 8)
	release := make(chan struct{})

	translator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/translate" && hold.Load() {
			started <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText": "traducido"}`))
	}))
	t.Cleanup(translator.Close)

	cfg := testConfig(t)
	cfg.Translation = config.TranslationConfig{Provider: config.ProviderLibreTranslate, URL: translator.URL, Timeout: 5 * time.Second}
	cfg.Database.BusyTimeout = 200 * time.Millisecond
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	status, resp := call(t, c, http.MethodPost, "/api/v1/records", "inspector", `{
		"part_number_id": 1, "work_center_id": 1, "customer_id": 1, "prepared_by_id": 1,
		"operation": "OP-10", "quantity": 1, "date": "2026-10-01",
		"inspection_item_id": 1, "process_code_id": 1,
		"defect_description": "scratch"
	}`)
	require.Equal(t, http.StatusCreated, status, resp)

	hold.Store(true)
	slow := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/records/1", strings.NewReader(`{"analysis": "burr left by tool"}`))
		req.Header.Set("Authorization", "Bearer operator")
		w := httptest.NewRecorder()
		c.Server().Router().ServeHTTP(w, req)
		slow <- w.Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("translation request never arrived")
	}

	begin := time.Now()
	status, resp = call(t, c, http.MethodPatch, "/api/v1/records/1", "tech", `{"engineer_id": 4}`)
	assert.Equal(t, http.StatusOK, status, resp)
	assert.Less(t, time.Since(begin), time.Second)

	close(release)
	select {
	case code := <-slow:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("slow update did not finish")
	}

	status, resp = call(t, c, http.MethodGet, "/api/v1/records/1", "tech", "")
	require.Equal(t, http.StatusOK, status)
	record := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(4), record["engineer_id"], "concurrent write survives the slow update")
	assert.Equal(t, "burr left by tool", record["analysis"].(map[string]interface{})["en"])
}

func TestContainer_HealthEndpoint(t *testing.T) {
	c := startContainer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	c.Server().Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	adapter := &zapLoggerAdapter{logger: zap.New(core)}

	adapter.Warn("translation failed", "target", "es", "error", errors.New("timeout"), 42, "dropped")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "es", fields["target"])
	assert.Equal(t, "timeout", fields["error"])
	assert.Len(t, fields, 2)
}
