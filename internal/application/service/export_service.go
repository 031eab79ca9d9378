package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// ExportFile is a rendered export ready to be sent to a client
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders filtered records as a spreadsheet
type ExportService interface {
	Export(ctx context.Context, filter entity.RecordFilter, format string, lang entity.Language) (*ExportFile, error)
	Formats() []string
}

type exportServiceImpl struct {
	records  RecordService
	catalogs port.CatalogRepository
	users    port.UserRepository
	writers  map[string]port.ReportWriter
	logger   Logger
}

// NewExportService creates a new ExportService. writers are keyed by format name.
func NewExportService(
	records RecordService,
	catalogs port.CatalogRepository,
	users port.UserRepository,
	writers map[string]port.ReportWriter,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		records:  records,
		catalogs: catalogs,
		users:    users,
		writers:  writers,
		logger:   logger,
	}
}

// lookups holds resolved names for one export run
type lookups struct {
	catalogs map[entity.Catalog]map[int64]string
	users    map[int64]string
}

func (l *lookups) catalog(c entity.Catalog, id *int64) string {
	if id == nil {
		return ""
	}
	if name, ok := l.catalogs[c][*id]; ok {
		return name
	}
	return strconv.FormatInt(*id, 10)
}

func (l *lookups) user(id *int64) string {
	if id == nil {
		return ""
	}
	if name, ok := l.users[*id]; ok {
		return name
	}
	return strconv.FormatInt(*id, 10)
}

type exportColumn struct {
	header string
	value  func(r *entity.Record, l *lookups, lang entity.Language) string
}

var exportColumns = []exportColumn{
	{"ID", func(r *entity.Record, _ *lookups, _ entity.Language) string { return strconv.FormatInt(r.ID, 10) }},
	{"Report Number", func(r *entity.Record, _ *lookups, _ entity.Language) string { return derefString(r.ReportNumber) }},
	{"Closed", func(r *entity.Record, _ *lookups, _ entity.Language) string { return strconv.FormatBool(r.IsClosed) }},
	{"Created At", func(r *entity.Record, _ *lookups, _ entity.Language) string { return r.CreatedAt.Format(time.RFC3339) }},
	{"Created By", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.user(&r.CreatedByID) }},
	{"Part Number", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogPartNumber, r.PartNumberID) }},
	{"Work Center", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogWorkCenter, r.WorkCenterID) }},
	{"Customer", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogCustomer, r.CustomerID) }},
	{"Level", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogLevel, r.LevelID) }},
	{"Area", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogArea, r.AreaID) }},
	{"Prepared By", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogPreparedBy, r.PreparedByID) }},
	{"Operation", func(r *entity.Record, _ *lookups, _ entity.Language) string { return derefString(r.Operation) }},
	{"Quantity", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatInt(r.Quantity) }},
	{"Serial Number", func(r *entity.Record, _ *lookups, _ entity.Language) string { return derefString(r.SerialNumber) }},
	{"Date", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatDate(r.Date) }},
	{"Inspection Item", func(r *entity.Record, l *lookups, _ entity.Language) string {
		return l.catalog(entity.CatalogInspectionItem, r.InspectionItemID)
	}},
	{"Process Code", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogProcessCode, r.ProcessCodeID) }},
	{"Defect Description", func(r *entity.Record, _ *lookups, lang entity.Language) string { return r.DefectDescription.Get(lang) }},
	{"Process Description", func(r *entity.Record, _ *lookups, lang entity.Language) string { return r.ProcessDescription.Get(lang) }},
	{"Analysis", func(r *entity.Record, _ *lookups, lang entity.Language) string { return r.Analysis.Get(lang) }},
	{"Analysis By", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.user(r.AnalysisByID) }},
	{"Final Disposition", func(r *entity.Record, l *lookups, _ entity.Language) string {
		return l.catalog(entity.CatalogDisposition, r.FinalDispositionID)
	}},
	{"Disposition Date", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatDate(r.DispositionDate) }},
	{"Engineer", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.user(r.EngineerID) }},
	{"Failure Code", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.catalog(entity.CatalogFailureCode, r.FailureCodeID) }},
	{"Rework Hours", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatFloat(r.ReworkHours) }},
	{"Responsible Department", func(r *entity.Record, _ *lookups, _ entity.Language) string { return derefString(r.ResponsibleDepartment) }},
	{"Material Scrap Cost", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatFloat(r.MaterialScrapCost) }},
	{"Other Cost", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatFloat(r.OtherCost) }},
	{"Engineering Remarks", func(r *entity.Record, _ *lookups, lang entity.Language) string { return r.EngineeringRemarks.Get(lang) }},
	{"Repair Process", func(r *entity.Record, _ *lookups, lang entity.Language) string { return r.RepairProcess.Get(lang) }},
	{"Disposition Approval Date", func(r *entity.Record, _ *lookups, _ entity.Language) string { return formatDate(r.DispositionApprovalDate) }},
	{"Disposition Approved By", func(r *entity.Record, l *lookups, _ entity.Language) string { return l.user(r.DispositionApprovedByID) }},
	{"SDR Number", func(r *entity.Record, _ *lookups, _ entity.Language) string { return derefString(r.SDRNumber) }},
}

// Export renders every record matching filter in the requested format
func (s *exportServiceImpl) Export(ctx context.Context, filter entity.RecordFilter, format string, lang entity.Language) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	writer, ok := s.writers[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported export format %q", entity.ErrInvalidInput, format)
	}

	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	l, err := s.loadLookups(ctx)
	if err != nil {
		return nil, err
	}

	headers := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		headers[i] = c.header
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(exportColumns))
		for i, c := range exportColumns {
			row[i] = c.value(r, l, lang)
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, "DMT Records", headers, rows); err != nil {
		s.logger.Error("Failed to render export", "error", err, "format", format)
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	s.logger.Info("Records exported", "format", format, "language", lang, "rows", len(rows))
	return &ExportFile{
		Filename:    fmt.Sprintf("dmt_records_%s.%s", time.Now().UTC().Format("20060102_150405"), writer.Extension()),
		ContentType: writer.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Formats lists the registered export formats
func (s *exportServiceImpl) Formats() []string {
	formats := make([]string, 0, len(s.writers))
	for f := range s.writers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func (s *exportServiceImpl) loadLookups(ctx context.Context) (*lookups, error) {
	l := &lookups{catalogs: make(map[entity.Catalog]map[int64]string, len(entity.Catalogs))}
	for _, c := range entity.Catalogs {
		names, err := s.catalogs.Names(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("load %s names: %w", c, err)
		}
		l.catalogs[c] = names
	}

	users, err := s.users.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user names: %w", err)
	}
	l.users = users
	return l, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
