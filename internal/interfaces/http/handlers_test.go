package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/dmt-records/internal/application/service"
	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/event"
	"github.com/garyjia/dmt-records/internal/domain/policy"
	"github.com/garyjia/dmt-records/internal/domain/workflow"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRecordService struct {
	createFunc  func(ctx context.Context, actor entity.Actor, patch *entity.Patch, lang entity.Language) (*entity.Record, error)
	getFunc     func(ctx context.Context, id int64) (*entity.Record, error)
	listFunc    func(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error)
	updateFunc  func(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error)
	deleteFunc  func(ctx context.Context, actor entity.Actor, id int64) (*entity.Record, error)
	historyFunc func(ctx context.Context, id int64) ([]*event.Event, error)
}

func (m *mockRecordService) Create(ctx context.Context, actor entity.Actor, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
	return m.createFunc(ctx, actor, patch, lang)
}

func (m *mockRecordService) Get(ctx context.Context, id int64) (*entity.Record, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRecordService) List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockRecordService) Update(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
	return m.updateFunc(ctx, actor, id, patch, lang)
}

func (m *mockRecordService) Delete(ctx context.Context, actor entity.Actor, id int64) (*entity.Record, error) {
	return m.deleteFunc(ctx, actor, id)
}

func (m *mockRecordService) History(ctx context.Context, id int64) ([]*event.Event, error) {
	return m.historyFunc(ctx, id)
}

func (m *mockRecordService) AllowedFields(role entity.Role) []entity.Field {
	return policy.AllowedFields(role).Fields()
}

type mockExportService struct {
	exportFunc func(ctx context.Context, filter entity.RecordFilter, format string, lang entity.Language) (*service.ExportFile, error)
}

func (m *mockExportService) Export(ctx context.Context, filter entity.RecordFilter, format string, lang entity.Language) (*service.ExportFile, error) {
	return m.exportFunc(ctx, filter, format, lang)
}

func (m *mockExportService) Formats() []string {
	return []string{"csv", "xlsx"}
}

var (
	inspector = entity.Actor{UserID: 2, Role: entity.RoleInspector}
	operator  = entity.Actor{UserID: 3, Role: entity.RoleOperator}
	quality   = entity.Actor{UserID: 5, Role: entity.RoleQualityEngineer}
)

func newTestServer(records *mockRecordService, exports *mockExportService, checks ...HealthCheck) *Server {
	if records == nil {
		records = &mockRecordService{}
	}
	if exports == nil {
		exports = &mockExportService{}
	}
	auth := StaticTokens{
		"inspector-token": inspector,
		"operator-token":  operator,
		"quality-token":   quality,
	}
	return NewServer(DefaultServerConfig(), Services{Records: records, Exports: exports}, auth, checks, &mockLogger{})
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details *ErrorDetails   `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func ptr[T any](v T) *T { return &v }

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(nil, nil)

	t.Run("missing token", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/policy/fields", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("unknown token", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/v1/policy/fields", "nope", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("health is public", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPolicyFields(t *testing.T) {
	s := newTestServer(nil, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/policy/fields", "operator-token", "")
	require.Equal(t, http.StatusOK, w.Code)

	var data PolicyResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "Operator", data.Role)
	assert.Equal(t, []string{"process_description", "analysis", "analysis_by_id"}, data.Fields)
}

func TestCreateRecord(t *testing.T) {
	var gotLang entity.Language
	var gotActor entity.Actor
	records := &mockRecordService{
		createFunc: func(ctx context.Context, actor entity.Actor, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
			gotActor, gotLang = actor, lang
			assert.True(t, patch.Has(entity.FieldDefectDescription))
			return &entity.Record{ID: 1, ReportNumber: ptr("1001")}, nil
		},
	}
	s := newTestServer(records, nil)

	w := doRequest(s, http.MethodPost, "/api/v1/records?language=es", "inspector-token",
		`{"defect_description": "grieta", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var record entity.Record
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &record))
	assert.Equal(t, "1001", *record.ReportNumber)
	assert.Equal(t, entity.LangES, gotLang)
	assert.Equal(t, inspector, gotActor)
}

func TestCreateRecord_BadInput(t *testing.T) {
	s := newTestServer(&mockRecordService{}, nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown field", "/api/v1/records", `{"colour": "red"}`},
		{"malformed json", "/api/v1/records", `{"quantity":`},
		{"unsupported language", "/api/v1/records?language=fr", `{"quantity": 1}`},
		{"null is_closed", "/api/v1/records", `{"is_closed": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, tt.path, "inspector-token", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestUpdateRecord_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, resp testResponse)
	}{
		{
			name: "forbidden field",
			err: &policy.ForbiddenError{
				Role:    entity.RoleOperator,
				Fields:  []entity.Field{entity.FieldOperation},
				Allowed: policy.AllowedFields(entity.RoleOperator).Fields(),
			},
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, resp testResponse) {
				require.NotNil(t, resp.Details)
				assert.Equal(t, []string{"operation"}, resp.Details.Fields)
				assert.Equal(t, []string{"process_description", "analysis", "analysis_by_id"}, resp.Details.Allowed)
				assert.Contains(t, resp.Error, "'operation'")
			},
		},
		{
			name:       "closed record",
			err:        entity.ErrRecordClosed,
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, resp testResponse) {
				assert.Equal(t, "cannot edit closed record", resp.Error)
			},
		},
		{
			name: "closing requirements",
			err: fmt.Errorf("trigger CLOSE from stage dispositioned: %w", &workflow.ViolationError{
				Field:  entity.FieldDispositionApprovalDate,
				Reason: "disposition_approval_date is required",
			}),
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp testResponse) {
				require.NotNil(t, resp.Details)
				assert.Equal(t, "disposition_approval_date", resp.Details.Field)
			},
		},
		{
			name:       "not found",
			err:        fmt.Errorf("%w: 9", entity.ErrRecordNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid input",
			err:        fmt.Errorf("%w: operation too long", entity.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "internal failure",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, resp testResponse) {
				assert.Equal(t, "internal server error", resp.Error)
				assert.Nil(t, resp.Details)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := &mockRecordService{
				updateFunc: func(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(records, nil)

			w := doRequest(s, http.MethodPatch, "/api/v1/records/9", "operator-token", `{"operation": "x"}`)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			resp := decode(t, w)
			assert.False(t, resp.Success)
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestUpdateRecord_PassesArguments(t *testing.T) {
	records := &mockRecordService{
		updateFunc: func(ctx context.Context, actor entity.Actor, id int64, patch *entity.Patch, lang entity.Language) (*entity.Record, error) {
			assert.Equal(t, int64(42), id)
			assert.Equal(t, entity.LangZH, lang)
			assert.Equal(t, quality, actor)
			assert.True(t, patch.ClosesRecord())
			return &entity.Record{ID: 42, IsClosed: true}, nil
		},
	}
	s := newTestServer(records, nil)

	w := doRequest(s, http.MethodPatch, "/api/v1/records/42?language=zh", "quality-token",
		`{"is_closed": true, "disposition_approval_date": "2026-10-01", "disposition_approved_by_id": 5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGetRecord_InvalidID(t *testing.T) {
	s := newTestServer(nil, nil)
	for _, id := range []string{"abc", "0", "-3"} {
		w := doRequest(s, http.MethodGet, "/api/v1/records/"+id, "operator-token", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestListRecords_Filter(t *testing.T) {
	var got entity.RecordFilter
	records := &mockRecordService{
		listFunc: func(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error) {
			got = filter
			return nil, nil
		},
	}
	s := newTestServer(records, nil)

	w := doRequest(s, http.MethodGet,
		"/api/v1/records?is_closed=false&part_number_id=3&created_after=2026-01-01&skip=10&limit=5",
		"operator-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "[]", string(decode(t, w).Data))

	require.NotNil(t, got.IsClosed)
	assert.False(t, *got.IsClosed)
	require.NotNil(t, got.PartNumberID)
	assert.Equal(t, int64(3), *got.PartNumberID)
	assert.Nil(t, got.CreatedByID)
	require.NotNil(t, got.CreatedAfter)
	assert.Equal(t, 2026, got.CreatedAfter.Year())
	assert.Nil(t, got.CreatedBefore)
	assert.Equal(t, 10, got.Skip)
	assert.Equal(t, 5, got.Limit)
}

func TestListRecords_BadFilter(t *testing.T) {
	s := newTestServer(&mockRecordService{}, nil)

	for _, query := range []string{"is_closed=maybe", "created_before=yesterday", "limit=many"} {
		w := doRequest(s, http.MethodGet, "/api/v1/records?"+query, "operator-token", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestDeleteRecord_OperationNotAllowed(t *testing.T) {
	records := &mockRecordService{
		deleteFunc: func(ctx context.Context, actor entity.Actor, id int64) (*entity.Record, error) {
			return nil, fmt.Errorf("%w: only Admin may delete records", entity.ErrOperationNotAllowed)
		},
	}
	s := newTestServer(records, nil)

	w := doRequest(s, http.MethodDelete, "/api/v1/records/1", "inspector-token", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordHistory(t *testing.T) {
	records := &mockRecordService{
		historyFunc: func(ctx context.Context, id int64) ([]*event.Event, error) {
			return []*event.Event{event.NewEvent(event.TypeRecordCreated, id, inspector, nil)}, nil
		},
	}
	s := newTestServer(records, nil)

	w := doRequest(s, http.MethodGet, "/api/v1/records/1/history", "operator-token", "")
	require.Equal(t, http.StatusOK, w.Code)

	var events []event.Event
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].RecordID)
}

func TestExportRecords(t *testing.T) {
	exports := &mockExportService{
		exportFunc: func(ctx context.Context, filter entity.RecordFilter, format string, lang entity.Language) (*service.ExportFile, error) {
			assert.Equal(t, "csv", format)
			assert.Equal(t, entity.LangES, lang)
			return &service.ExportFile{
				Filename:    "dmt_records.csv",
				ContentType: "text/csv; charset=utf-8",
				Data:        []byte("ID\n1\n"),
			}, nil
		},
	}
	s := newTestServer(nil, exports)

	w := doRequest(s, http.MethodGet, "/api/v1/records/export?format=csv&language=es", "operator-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dmt_records.csv")
	assert.Equal(t, "ID\n1\n", w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	t.Run("degraded when translation is down", func(t *testing.T) {
		s := newTestServer(nil, nil,
			HealthCheck{Name: "database", Critical: true, Check: ok},
			HealthCheck{Name: "translation", Check: down},
		)
		w := doRequest(s, http.MethodGet, "/health", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &health))
		assert.Equal(t, "degraded", health.Status)
		assert.Equal(t, "ok", health.Components["database"])
		assert.Equal(t, "connection refused", health.Components["translation"])
	})

	t.Run("unhealthy when database is down", func(t *testing.T) {
		s := newTestServer(nil, nil, HealthCheck{Name: "database", Critical: true, Check: down})
		w := doRequest(s, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(nil, nil)
	w := doRequest(s, http.MethodOptions, "/api/v1/records", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
