package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/dmt-records/internal/domain/entity"
	"github.com/garyjia/dmt-records/internal/domain/event"
)

type mockLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, msg)
}

func (m *mockLogger) warnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warns)
}

// memRecordRepo keeps records in memory. Stored copies never alias what callers hold.
type memRecordRepo struct {
	records   map[int64]*entity.Record
	nextID    int64
	updates   int
	updateErr error
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[int64]*entity.Record), nextID: 1}
}

func (m *memRecordRepo) Create(ctx context.Context, record *entity.Record) error {
	record.ID = m.nextID
	record.CreatedAt = time.Now().UTC()
	m.nextID++
	m.records[record.ID] = record.Clone()
	return nil
}

func (m *memRecordRepo) GetByID(ctx context.Context, id int64) (*entity.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (m *memRecordRepo) Update(ctx context.Context, record *entity.Record) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[record.ID]; !ok {
		return fmt.Errorf("record %d not found", record.ID)
	}
	m.updates++
	m.records[record.ID] = record.Clone()
	return nil
}

func (m *memRecordRepo) SetReportNumber(ctx context.Context, id int64, reportNumber string) error {
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("record %d not found", id)
	}
	r.ReportNumber = &reportNumber
	return nil
}

func (m *memRecordRepo) List(ctx context.Context, filter entity.RecordFilter) ([]*entity.Record, error) {
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*entity.Record
	for _, id := range ids {
		r := m.records[id]
		if filter.IsClosed != nil && r.IsClosed != *filter.IsClosed {
			continue
		}
		out = append(out, r.Clone())
	}
	if filter.Skip >= len(out) {
		return []*entity.Record{}, nil
	}
	out = out[filter.Skip:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memRecordRepo) Delete(ctx context.Context, id int64) error {
	delete(m.records, id)
	return nil
}

// put stores a record directly, bypassing the service
func (m *memRecordRepo) put(r *entity.Record) {
	if r.ID == 0 {
		r.ID = m.nextID
		m.nextID++
	}
	m.records[r.ID] = r.Clone()
}

type memHistoryRepo struct {
	events []*event.Event
}

func (m *memHistoryRepo) Append(ctx context.Context, e *event.Event) error {
	e.Seq = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

func (m *memHistoryRepo) ListByRecordID(ctx context.Context, recordID int64) ([]*event.Event, error) {
	var out []*event.Event
	for _, e := range m.events {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockTxManager runs fn inline. onBegin, when set, runs as the transaction
// opens, standing in for a concurrent writer that committed first.
type mockTxManager struct {
	calls   int
	active  bool
	onBegin func()
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.onBegin != nil {
		m.onBegin()
	}
	m.active = true
	defer func() { m.active = false }()
	return fn(ctx)
}

type mockProvider struct {
	mu        sync.Mutex
	calls     []string
	translate func(ctx context.Context, text string, source, target entity.Language) (string, error)
	pingErr   error
}

func (m *mockProvider) Translate(ctx context.Context, text string, source, target entity.Language) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, string(source)+"->"+string(target))
	m.mu.Unlock()
	if m.translate != nil {
		return m.translate(ctx, text, source, target)
	}
	return "[" + string(target) + "] " + text, nil
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// stubTranslator tags each variant with its language
type stubTranslator struct {
	calls     int
	callsInTx int
	tx        *mockTxManager
}

func (s *stubTranslator) Expand(ctx context.Context, text string, source entity.Language) entity.LocalizedText {
	s.calls++
	if s.tx != nil && s.tx.active {
		s.callsInTx++
	}
	out := entity.LocalizedText{EN: "en:" + text, ES: "es:" + text, ZH: "zh:" + text}
	out.Set(source, text)
	return out
}

func (s *stubTranslator) Check(ctx context.Context) error { return nil }

func (s *stubTranslator) Provider() string { return "stub" }
