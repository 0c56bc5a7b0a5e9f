package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/repository"
)

// MemoryStore is an in-memory repository.Store for handler and service tests.
// Set Err to make every call fail.
type MemoryStore struct {
	mu           sync.Mutex
	Profiles     map[string]*model.Profile
	Links        []*model.BioLink
	Deals        []*model.Deal
	Calculations []*model.RateCalculation
	Waitlist     []*model.WaitlistEntry
	Events       []*model.Event
	Updates      map[string][]model.SubscriptionUpdate
	Err          error
	EventErr     error
}

var _ repository.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Profiles: make(map[string]*model.Profile),
		Updates:  make(map[string][]model.SubscriptionUpdate),
	}
}

// AddProfile stores p.
func (m *MemoryStore) AddProfile(p *model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profiles[p.ID] = p
}

// EventTypes returns the types of the recorded events in order.
func (m *MemoryStore) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.EventType
	}
	return out
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.Err
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemoryStore) SetStripeCustomerID(ctx context.Context, profileID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.Profiles[profileID]
	if !ok {
		return repository.ErrNotFound
	}
	p.StripeCustomerID = &customerID
	return nil
}

func (m *MemoryStore) UpdateSubscription(ctx context.Context, profileID string, update model.SubscriptionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Updates[profileID] = append(m.Updates[profileID], update)

	p, ok := m.Profiles[profileID]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Status != "" {
		p.SubscriptionStatus = Ptr(string(update.Status))
	}
	if update.Clear {
		p.SubscriptionPlan, p.SubscriptionInterval, p.StripeSubscriptionID = nil, nil, nil
	} else {
		if update.Plan != nil {
			p.SubscriptionPlan = update.Plan
		}
		if update.Interval != nil {
			p.SubscriptionInterval = update.Interval
		}
		if update.SubscriptionID != nil {
			p.StripeSubscriptionID = update.SubscriptionID
		}
	}
	if update.PeriodEnd != nil {
		p.SubscriptionPeriodEnd = update.PeriodEnd
	}
	return nil
}

func (m *MemoryStore) ListActiveBioLinks(ctx context.Context, profileID string) ([]*model.BioLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*model.BioLink
	for _, l := range m.Links {
		if l.ProfileID == profileID && l.IsActive {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *MemoryStore) ListDeals(ctx context.Context, userID string) ([]*model.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*model.Deal
	for _, d := range m.Deals {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListRecentRateCalculations(ctx context.Context, userID string, limit int) ([]*model.RateCalculation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*model.RateCalculation
	for _, c := range m.Calculations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CalculatedAt.After(out[j].CalculatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CreateRateCalculation(ctx context.Context, calc *model.RateCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if calc.ID == "" {
		calc.ID = "calc-" + strconv.Itoa(len(m.Calculations)+1)
	}
	if calc.CalculatedAt.IsZero() {
		calc.CalculatedAt = time.Now()
	}
	m.Calculations = append(m.Calculations, calc)
	return nil
}

func (m *MemoryStore) CreateWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, e := range m.Waitlist {
		if e.Email == entry.Email {
			return repository.ErrDuplicate
		}
	}
	m.Waitlist = append(m.Waitlist, entry)
	return nil
}

func (m *MemoryStore) CreateEvent(ctx context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.EventErr != nil {
		return m.EventErr
	}
	if event.ID != "" {
		for _, existing := range m.Events {
			if existing.ID == event.ID {
				return repository.ErrDuplicate
			}
		}
	}
	m.Events = append(m.Events, event)
	return nil
}
