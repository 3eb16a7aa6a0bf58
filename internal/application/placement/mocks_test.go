package placement

import (
	"context"
	"sync"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockEntityDirectory is a mock implementation of placement.EntityDirectory
type MockEntityDirectory struct {
	mock.Mock
}

func (m *MockEntityDirectory) FindByID(ctx context.Context, id uuid.UUID) (*placement.TrackedEntity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*placement.TrackedEntity), args.Error(1)
}

func (m *MockEntityDirectory) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]placement.TrackedEntity, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]placement.TrackedEntity), args.Error(1)
}

func (m *MockEntityDirectory) Save(ctx context.Context, entity *placement.TrackedEntity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockEntityDirectory) UpdateMirror(ctx context.Context, id uuid.UUID, zoneID *uuid.UUID, expectedVersion int) error {
	args := m.Called(ctx, id, zoneID, expectedVersion)
	return args.Error(0)
}

// MockZoneDirectory is a mock implementation of placement.ZoneDirectory
type MockZoneDirectory struct {
	mock.Mock
}

func (m *MockZoneDirectory) FindByID(ctx context.Context, id uuid.UUID) (*placement.Zone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*placement.Zone), args.Error(1)
}

func (m *MockZoneDirectory) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]placement.Zone, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]placement.Zone), args.Error(1)
}

func (m *MockZoneDirectory) Save(ctx context.Context, zone *placement.Zone) error {
	args := m.Called(ctx, zone)
	return args.Error(0)
}

// MockPeriodRepository is a mock implementation of placement.PeriodRepository
type MockPeriodRepository struct {
	mock.Mock
}

func (m *MockPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*placement.PlacementPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*placement.PlacementPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.PlacementPeriod, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).([]placement.PlacementPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindOpenByEntity(ctx context.Context, entityID uuid.UUID, forUpdate bool) ([]placement.PlacementPeriod, error) {
	args := m.Called(ctx, entityID, forUpdate)
	return args.Get(0).([]placement.PlacementPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindByZones(ctx context.Context, zoneIDs []uuid.UUID) ([]placement.PlacementPeriod, error) {
	args := m.Called(ctx, zoneIDs)
	return args.Get(0).([]placement.PlacementPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindAll(ctx context.Context, filter placement.PeriodFilter) ([]placement.PlacementPeriod, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]placement.PlacementPeriod), args.Get(1).(int64), args.Error(2)
}

func (m *MockPeriodRepository) Save(ctx context.Context, period *placement.PlacementPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAuditSource is a mock implementation of placement.AuditSource
type MockAuditSource struct {
	mock.Mock
}

func (m *MockAuditSource) ScanOpenPlacements(ctx context.Context, activeOnly bool) ([]placement.OpenPlacementRow, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]placement.OpenPlacementRow), args.Error(1)
}

// MockLegacyLogReader is a mock implementation of placement.LegacyLogReader
type MockLegacyLogReader struct {
	mock.Mock
}

func (m *MockLegacyLogReader) MovementsByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.LegacyMovement, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).([]placement.LegacyMovement), args.Error(1)
}

func (m *MockLegacyLogReader) EventsByEntity(ctx context.Context, entityID uuid.UUID) ([]placement.LegacyEvent, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).([]placement.LegacyEvent), args.Error(1)
}

// MockEnrichmentSource is a mock implementation of placement.EnrichmentSource
type MockEnrichmentSource struct {
	mock.Mock
}

func (m *MockEnrichmentSource) BreedingMemberships(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]placement.BreedingMembership, error) {
	args := m.Called(ctx, entityID, from, to)
	return args.Get(0).([]placement.BreedingMembership), args.Error(1)
}

func (m *MockEnrichmentSource) PregnancyChecks(ctx context.Context, entityID uuid.UUID, from time.Time, to *time.Time) ([]placement.PregnancyCheck, error) {
	args := m.Called(ctx, entityID, from, to)
	return args.Get(0).([]placement.PregnancyCheck), args.Error(1)
}

func (m *MockEnrichmentSource) BirthRecords(ctx context.Context, entityID uuid.UUID) ([]placement.BirthRecord, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).([]placement.BirthRecord), args.Error(1)
}

// memoryCache is an in-process AuditCache
type memoryCache struct {
	mu          sync.Mutex
	reports     map[bool]*placement.AuditReport
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[bool]*placement.AuditReport)}
}

func (c *memoryCache) Get(_ context.Context, activeOnly bool) (*placement.AuditReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[activeOnly]
	return r, ok, nil
}

func (c *memoryCache) Set(_ context.Context, activeOnly bool, report *placement.AuditReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[activeOnly] = report
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = make(map[bool]*placement.AuditReport)
	c.invalidated++
	return nil
}

type testDeps struct {
	entities   *MockEntityDirectory
	zones      *MockZoneDirectory
	periods    *MockPeriodRepository
	audit      *MockAuditSource
	legacy     *MockLegacyLogReader
	enrichment *MockEnrichmentSource
	publisher  *MockEventPublisher
	service    *PlacementService
}

func newTestService(opts Options) *testDeps {
	d := &testDeps{
		entities:   new(MockEntityDirectory),
		zones:      new(MockZoneDirectory),
		periods:    new(MockPeriodRepository),
		audit:      new(MockAuditSource),
		legacy:     new(MockLegacyLogReader),
		enrichment: new(MockEnrichmentSource),
		publisher:  NewMockEventPublisher(),
	}
	d.service = NewPlacementService(Repositories{
		Entities:   d.entities,
		Zones:      d.zones,
		Periods:    d.periods,
		Audit:      d.audit,
		Legacy:     d.legacy,
		Enrichment: d.enrichment,
	}, NewNoOpTransactionScope(d.entities, d.zones, d.periods), opts, nil)
	d.service.SetEventPublisher(d.publisher)
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func newEntity(mirror *uuid.UUID) *placement.TrackedEntity {
	e, err := placement.NewTrackedEntity("TAG-" + uuid.NewString()[:4])
	if err != nil {
		panic(err)
	}
	e.CurrentZoneID = mirror
	return e
}

func newPeriod(entityID, zoneID uuid.UUID, start time.Time, end *time.Time) placement.PlacementPeriod {
	p, err := placement.NewPlacementPeriod(entityID, zoneID, placement.FunctionGeneral, start, placement.PeriodMetadata{})
	if err != nil {
		panic(err)
	}
	p.EndDate = end
	return *p
}

func newZone(id uuid.UUID) placement.Zone {
	z, err := placement.NewZone("Zone", placement.ZoneTypePen, 10)
	if err != nil {
		panic(err)
	}
	z.ID = id
	return *z
}

// rowsFor builds scan rows the way the audit join returns them
func rowsFor(e *placement.TrackedEntity, open []placement.PlacementPeriod) []placement.OpenPlacementRow {
	base := placement.OpenPlacementRow{
		EntityID:         e.ID,
		Tag:              e.Tag,
		Status:           e.Status,
		EntityVersion:    e.GetVersion(),
		MirrorZoneID:     e.CurrentZoneID,
		MirrorZoneExists: e.CurrentZoneID != nil,
	}
	if len(open) == 0 {
		return []placement.OpenPlacementRow{base}
	}
	rows := make([]placement.OpenPlacementRow, 0, len(open))
	for i := range open {
		r := base
		r.PeriodID = idPtr(open[i].ID)
		r.PeriodZoneID = idPtr(open[i].ZoneID)
		r.PeriodZoneExists = true
		start := open[i].StartDate
		r.PeriodStart = &start
		rows = append(rows, r)
	}
	return rows
}
