package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kaldera-app/backend/internal/models"
)

// mockEventRepository is an in-memory EventRepository for service tests.
type mockEventRepository struct {
	mu          sync.Mutex
	events      map[string]*models.CalorieEvent
	appendCalls int
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{events: make(map[string]*models.CalorieEvent)}
}

func (m *mockEventRepository) Append(ctx context.Context, event *models.CalorieEvent) (*models.CalorieEvent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	if existing, ok := m.events[event.ID]; ok {
		return existing, false, nil
	}
	stored := *event
	if stored.RecordedAt.IsZero() {
		stored.RecordedAt = time.Now()
	}
	m.events[stored.ID] = &stored
	return &stored, true, nil
}

func (m *mockEventRepository) AppendBatch(ctx context.Context, events []models.CalorieEvent) (int64, error) {
	var created int64
	for i := range events {
		_, wasCreated, err := m.Append(ctx, &events[i])
		if err != nil {
			return created, err
		}
		if wasCreated {
			created++
		}
	}
	return created, nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*models.CalorieEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[id]; ok {
		return ev, nil
	}
	return nil, nil
}

func (m *mockEventRepository) ListByUser(ctx context.Context, userID string, filter models.EventFilter) ([]models.CalorieEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.CalorieEvent
	for _, ev := range m.events {
		if ev.UserID != userID {
			continue
		}
		if filter.EventType != nil && ev.EventType != *filter.EventType {
			continue
		}
		if !filter.From.IsZero() && ev.EventTimestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !ev.EventTimestamp.Before(filter.To) {
			continue
		}
		result = append(result, *ev)
	}
	sortByTimestamp(result)
	return result, nil
}

func (m *mockEventRepository) ListByUserAndTimeRange(ctx context.Context, userID string, from, to time.Time) ([]models.CalorieEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.CalorieEvent
	for _, ev := range m.events {
		if ev.UserID != userID {
			continue
		}
		if ev.EventTimestamp.Before(from) || !ev.EventTimestamp.Before(to) {
			continue
		}
		result = append(result, *ev)
	}
	sortByTimestamp(result)
	return result, nil
}

func sortByTimestamp(events []models.CalorieEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventTimestamp.Before(events[j].EventTimestamp)
	})
}

// mockBalanceRepository is an in-memory DailyBalanceRepository.
type mockBalanceRepository struct {
	mu          sync.Mutex
	rows        map[string]*models.DailyBalance // userID+"/"+date
	upsertCalls int
}

func newMockBalanceRepository() *mockBalanceRepository {
	return &mockBalanceRepository{rows: make(map[string]*models.DailyBalance)}
}

func (m *mockBalanceRepository) Upsert(ctx context.Context, balance *models.DailyBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	row := *balance
	m.rows[balance.UserID+"/"+balance.Date] = &row
	return nil
}

func (m *mockBalanceRepository) Get(ctx context.Context, userID, date string) (*models.DailyBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[userID+"/"+date]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (m *mockBalanceRepository) GetRange(ctx context.Context, userID, from, to string) ([]models.DailyBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.DailyBalance
	for _, row := range m.rows {
		if row.UserID == userID && row.Date >= from && row.Date <= to {
			result = append(result, *row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// mockGoalRepository is an in-memory GoalRepository.
type mockGoalRepository struct {
	mu    sync.Mutex
	goals map[string]*models.CalorieGoal
}

func newMockGoalRepository() *mockGoalRepository {
	return &mockGoalRepository{goals: make(map[string]*models.CalorieGoal)}
}

func (m *mockGoalRepository) Create(ctx context.Context, goal *models.CalorieGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := *goal
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	m.goals[g.ID] = &g
	return nil
}

func (m *mockGoalRepository) Update(ctx context.Context, goal *models.CalorieGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := *goal
	m.goals[g.ID] = &g
	return nil
}

func (m *mockGoalRepository) GetByID(ctx context.Context, id string) (*models.CalorieGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goals[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, nil
}

func (m *mockGoalRepository) ListActive(ctx context.Context, userID string) ([]models.CalorieGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.CalorieGoal
	for _, g := range m.goals {
		if g.UserID == userID && g.IsActive {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockGoalRepository) ListByUser(ctx context.Context, userID string) ([]models.CalorieGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.CalorieGoal
	for _, g := range m.goals {
		if g.UserID == userID {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate > result[j].StartDate })
	return result, nil
}

// mockProfileRepository is an in-memory ProfileRepository.
type mockProfileRepository struct {
	mu       sync.Mutex
	profiles []*models.MetabolicProfile
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{}
}

func (m *mockProfileRepository) CreateVersion(ctx context.Context, profile *models.MetabolicProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UserID == profile.UserID {
			p.IsActive = false
		}
	}
	copied := *profile
	m.profiles = append(m.profiles, &copied)
	return nil
}

func (m *mockProfileRepository) GetActive(ctx context.Context, userID string) (*models.MetabolicProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UserID == userID && p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

// mockRecomputer records triggers without executing them.
type mockRecomputer struct {
	mu       sync.Mutex
	triggers []string // userID+"/"+date
}

func (m *mockRecomputer) Trigger(userID, date string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, userID+"/"+date)
}

func (m *mockRecomputer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}
