package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/dmt-records/internal/application/service"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	records service.RecordService
	exports service.ExportService
	checks  []HealthCheck
	logger  Logger
}

// HealthCheck probes one dependency. A failing critical check makes the
// service unhealthy; any other failure only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// NewHandlers creates a new Handlers instance
func NewHandlers(records service.RecordService, exports service.ExportService, checks []HealthCheck, logger Logger) *Handlers {
	return &Handlers{
		records: records,
		exports: exports,
		checks:  checks,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// PolicyResponse lists the fields a role may write
type PolicyResponse struct {
	Role   string   `json:"role"`
	Fields []string `json:"fields"`
}

// listQuery holds the query parameters accepted by record listings
type listQuery struct {
	IsClosed      *bool  `form:"is_closed"`
	CreatedByID   *int64 `form:"created_by_id"`
	PartNumberID  *int64 `form:"part_number_id"`
	CreatedAfter  string `form:"created_after"`
	CreatedBefore string `form:"created_before"`
	Skip          int    `form:"skip"`
	Limit         int    `form:"limit"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(h.checks))

	for _, check := range h.checks {
		if err := check.Check(c.Request.Context()); err != nil {
			components[check.Name] = err.Error()
			if check.Critical {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if status == "healthy" {
				status = "degraded"
			}
			continue
		}
		components[check.Name] = "ok"
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data: HealthResponse{
			Status:     status,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: components,
		},
	})
}

// CreateRecord handles POST /api/v1/records
func (h *Handlers) CreateRecord(c *gin.Context) {
	lang, err := entity.ParseLanguage(c.Query("language"))
	if err != nil {
		h.writeError(c, "create", err)
		return
	}
	patch, err := entity.DecodePatch(c.Request.Body)
	if err != nil {
		h.writeError(c, "create", err)
		return
	}

	record, err := h.records.Create(c.Request.Context(), actorFrom(c), patch, lang)
	if err != nil {
		h.writeError(c, "create", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: record})
}

// ListRecords handles GET /api/v1/records
func (h *Handlers) ListRecords(c *gin.Context) {
	filter, err := bindFilter(c)
	if err != nil {
		h.writeError(c, "list", err)
		return
	}

	records, err := h.records.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	if records == nil {
		records = []*entity.Record{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetRecord handles GET /api/v1/records/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		h.writeError(c, "get", err)
		return
	}

	record, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// UpdateRecord handles PATCH /api/v1/records/:id
func (h *Handlers) UpdateRecord(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		h.writeError(c, "update", err)
		return
	}
	lang, err := entity.ParseLanguage(c.Query("language"))
	if err != nil {
		h.writeError(c, "update", err)
		return
	}
	patch, err := entity.DecodePatch(c.Request.Body)
	if err != nil {
		h.writeError(c, "update", err)
		return
	}

	record, err := h.records.Update(c.Request.Context(), actorFrom(c), id, patch, lang)
	if err != nil {
		h.writeError(c, "update", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// DeleteRecord handles DELETE /api/v1/records/:id
func (h *Handlers) DeleteRecord(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}

	record, err := h.records.Delete(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// RecordHistory handles GET /api/v1/records/:id/history
func (h *Handlers) RecordHistory(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		h.writeError(c, "history", err)
		return
	}

	events, err := h.records.History(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// ExportRecords handles GET /api/v1/records/export
func (h *Handlers) ExportRecords(c *gin.Context) {
	filter, err := bindFilter(c)
	if err != nil {
		h.writeError(c, "export", err)
		return
	}
	lang, err := entity.ParseLanguage(c.Query("language"))
	if err != nil {
		h.writeError(c, "export", err)
		return
	}

	file, err := h.exports.Export(c.Request.Context(), filter, c.Query("format"), lang)
	if err != nil {
		h.writeError(c, "export", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// PolicyFields handles GET /api/v1/policy/fields
func (h *Handlers) PolicyFields(c *gin.Context) {
	actor := actorFrom(c)
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PolicyResponse{
			Role:   string(actor.Role),
			Fields: fieldNames(h.records.AllowedFields(actor.Role)),
		},
	})
}

func recordID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid record id %q", entity.ErrInvalidInput, raw)
	}
	return id, nil
}

func bindFilter(c *gin.Context) (entity.RecordFilter, error) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return entity.RecordFilter{}, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	filter := entity.RecordFilter{
		IsClosed:     q.IsClosed,
		CreatedByID:  q.CreatedByID,
		PartNumberID: q.PartNumberID,
		Skip:         q.Skip,
		Limit:        q.Limit,
	}

	var err error
	if filter.CreatedAfter, err = parseQueryTime("created_after", q.CreatedAfter); err != nil {
		return entity.RecordFilter{}, err
	}
	if filter.CreatedBefore, err = parseQueryTime("created_before", q.CreatedBefore); err != nil {
		return entity.RecordFilter{}, err
	}
	return filter, nil
}

func parseQueryTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := entity.ParseDateTime(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrInvalidInput, name, err)
	}
	return &t, nil
}
