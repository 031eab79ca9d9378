package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/dmt-records/internal/application/port"
	"github.com/garyjia/dmt-records/internal/domain/entity"
)

type mockCatalogRepo struct {
	names map[entity.Catalog]map[int64]string
	err   error
}

func (m *mockCatalogRepo) Names(ctx context.Context, catalog entity.Catalog) (map[int64]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.names[catalog], nil
}

func (m *mockCatalogRepo) Ensure(ctx context.Context, catalog entity.Catalog, itemNumber, itemName string) (int64, error) {
	return 0, nil
}

type mockUserRepo struct {
	names map[int64]string
}

func (m *mockUserRepo) Ensure(ctx context.Context, user *entity.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	name, ok := m.names[id]
	if !ok {
		return nil, nil
	}
	return &entity.User{ID: id, FullName: name}, nil
}

func (m *mockUserRepo) Names(ctx context.Context) (map[int64]string, error) {
	return m.names, nil
}

// captureWriter records what it was asked to render
type captureWriter struct {
	sheet   string
	headers []string
	rows    [][]string
}

func (c *captureWriter) Write(w io.Writer, sheet string, headers []string, rows [][]string) error {
	c.sheet, c.headers, c.rows = sheet, headers, rows
	_, err := io.WriteString(w, "ok")
	return err
}

func (c *captureWriter) ContentType() string { return "text/plain" }

func (c *captureWriter) Extension() string { return "txt" }

func column(t *testing.T, headers []string, name string) int {
	t.Helper()
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not found", name)
	return -1
}

func TestExportService_Export(t *testing.T) {
	f := newRecordFixture()
	f.records.put(&entity.Record{
		CreatedByID:       10,
		PartNumberID:      int64p(1),
		FailureCodeID:     int64p(99),
		DefectDescription: entity.LocalizedText{EN: "crack", ES: "grieta"},
	})

	writer := &captureWriter{}
	svc := NewExportService(
		f.svc,
		&mockCatalogRepo{names: map[entity.Catalog]map[int64]string{
			entity.CatalogPartNumber: {1: "PN-100"},
		}},
		&mockUserRepo{names: map[int64]string{10: "Ana Ruiz"}},
		map[string]port.ReportWriter{"txt": writer},
		&mockLogger{},
	)

	file, err := svc.Export(context.Background(), entity.RecordFilter{}, "TXT", entity.LangES)
	require.NoError(t, err)

	assert.Equal(t, "ok", string(file.Data))
	assert.Equal(t, "text/plain", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".txt"))
	assert.Equal(t, "DMT Records", writer.sheet)

	require.Len(t, writer.rows, 1)
	row := writer.rows[0]
	assert.Equal(t, "PN-100", row[column(t, writer.headers, "Part Number")])
	assert.Equal(t, "99", row[column(t, writer.headers, "Failure Code")], "unknown ids fall back to the number")
	assert.Equal(t, "Ana Ruiz", row[column(t, writer.headers, "Created By")])
	assert.Equal(t, "grieta", row[column(t, writer.headers, "Defect Description")])
	assert.Equal(t, "", row[column(t, writer.headers, "Customer")])
}

func TestExportService_Errors(t *testing.T) {
	f := newRecordFixture()
	writers := map[string]port.ReportWriter{"csv": &captureWriter{}}

	svc := NewExportService(f.svc, &mockCatalogRepo{}, &mockUserRepo{}, writers, &mockLogger{})
	_, err := svc.Export(context.Background(), entity.RecordFilter{}, "pdf", entity.LangEN)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = svc.Export(context.Background(), entity.RecordFilter{Limit: -5}, "csv", entity.LangEN)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	svc = NewExportService(f.svc, &mockCatalogRepo{err: errors.New("db gone")}, &mockUserRepo{}, writers, &mockLogger{})
	_, err = svc.Export(context.Background(), entity.RecordFilter{}, "", entity.LangEN)
	assert.ErrorContains(t, err, "db gone")

	assert.Equal(t, []string{"csv"}, svc.Formats())
}
