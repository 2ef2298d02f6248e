package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"subsync/internal/models"
	"subsync/internal/repositories"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory repositories.Store that enforces the same
// unique constraints as the schema: one active subscription per user and one
// subscription per zotlo_subscription_id.
type MemoryStore struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID int64
	subs   map[int64]models.Subscription
	users  map[int64]models.User

	Creates int
	Updates int

	// FailUpdates makes every Update return the error when set.
	FailUpdates error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:  make(map[int64]models.Subscription),
		users: make(map[int64]models.User),
	}
}

// AddUser stores u and returns it.
func (m *MemoryStore) AddUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

// AddSubscription stores s as is, assigning an id when missing. Constraints
// are not checked so fixtures can set up any state.
func (m *MemoryStore) AddSubscription(s models.Subscription) models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	} else if s.ID > m.nextID {
		m.nextID = s.ID
	}
	if s.SubscriptionID == uuid.Nil {
		s.SubscriptionID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
		s.UpdatedAt = s.CreatedAt
	}
	m.subs[s.ID] = s
	return s
}

// Subscription returns the stored row by id.
func (m *MemoryStore) Subscription(id int64) (models.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	return s, ok
}

// AllSubscriptions returns every stored row ordered by id.
func (m *MemoryStore) AllSubscriptions() []models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Writes is the number of Create and Update calls that succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Creates + m.Updates
}

func (m *MemoryStore) Subscriptions() repositories.SubscriptionRepository {
	return memorySubscriptions{m}
}

func (m *MemoryStore) Users() repositories.UserRepository {
	return memoryUsers{m}
}

// WithTx serialises transactions and restores the previous state when fn
// fails.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshotSubs := make(map[int64]models.Subscription, len(m.subs))
	for k, v := range m.subs {
		snapshotSubs[k] = v
	}
	snapshotUsers := make(map[int64]models.User, len(m.users))
	for k, v := range m.users {
		snapshotUsers[k] = v
	}
	snapshotNext, snapshotCreates, snapshotUpdates := m.nextID, m.Creates, m.Updates
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.subs, m.users = snapshotSubs, snapshotUsers
		m.nextID, m.Creates, m.Updates = snapshotNext, snapshotCreates, snapshotUpdates
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) checkConstraints(s models.Subscription) error {
	for id, other := range m.subs {
		if id == s.ID {
			continue
		}
		if s.Status == models.StatusActive && other.Status == models.StatusActive &&
			s.UserID != nil && other.UserID != nil && *s.UserID == *other.UserID {
			return fmt.Errorf("%w: user %d", repositories.ErrActiveSubscriptionExists, *s.UserID)
		}
		if s.ZotloSubscriptionID != nil && other.ZotloSubscriptionID != nil && *s.ZotloSubscriptionID == *other.ZotloSubscriptionID {
			return fmt.Errorf("%w: %s", repositories.ErrDuplicateTransactionID, *s.ZotloSubscriptionID)
		}
	}
	return nil
}

type memorySubscriptions struct {
	m *MemoryStore
}

func (r memorySubscriptions) Create(_ context.Context, s *models.Subscription) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.checkConstraints(*s); err != nil {
		return err
	}
	r.m.nextID++
	s.ID = r.m.nextID
	if s.SubscriptionID == uuid.Nil {
		s.SubscriptionID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	r.m.subs[s.ID] = *s
	r.m.Creates++
	return nil
}

func (r memorySubscriptions) Update(_ context.Context, s *models.Subscription) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailUpdates != nil {
		return r.m.FailUpdates
	}
	existing, ok := r.m.subs[s.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := r.m.checkConstraints(*s); err != nil {
		return err
	}
	updated := *s
	updated.SubscriptionID = existing.SubscriptionID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.m.subs[s.ID] = updated
	s.UpdatedAt = updated.UpdatedAt
	r.m.Updates++
	return nil
}

func (r memorySubscriptions) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.subs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r memorySubscriptions) GetByZotloSubscriptionID(_ context.Context, txn string) (*models.Subscription, error) {
	return r.first(func(s models.Subscription) bool {
		return s.ZotloSubscriptionID != nil && *s.ZotloSubscriptionID == txn
	})
}

func (r memorySubscriptions) GetLatestByUser(_ context.Context, userID int64) (*models.Subscription, error) {
	return r.first(func(s models.Subscription) bool {
		return s.UserID != nil && *s.UserID == userID
	})
}

func (r memorySubscriptions) GetLatestActiveByUser(_ context.Context, userID int64) (*models.Subscription, error) {
	return r.first(func(s models.Subscription) bool {
		return s.UserID != nil && *s.UserID == userID && s.Status == models.StatusActive
	})
}

// first returns the newest matching row, newest meaning highest id.
func (r memorySubscriptions) first(match func(models.Subscription) bool) (*models.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var found *models.Subscription
	for _, s := range r.m.subs {
		if !match(s) {
			continue
		}
		if found == nil || s.ID > found.ID {
			s := s
			found = &s
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (r memorySubscriptions) ListSyncable(_ context.Context, afterID int64, limit int) ([]models.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Subscription
	for _, s := range r.m.subs {
		if s.ID <= afterID {
			continue
		}
		for _, st := range models.SyncableStatuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memorySubscriptions) DailyReport(_ context.Context, from, to time.Time) ([]models.DailySubscriptionReport, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	day := func(t time.Time) time.Time {
		y, mo, d := t.UTC().Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	}
	inRange := func(t time.Time) bool {
		d := day(t)
		return !d.Before(day(from)) && !d.After(day(to))
	}

	rows := map[time.Time]*models.DailySubscriptionReport{}
	for _, s := range r.m.subs {
		if !inRange(s.CreatedAt) {
			continue
		}
		key := day(s.CreatedAt)
		row, ok := rows[key]
		if !ok {
			row = &models.DailySubscriptionReport{Day: key}
			rows[key] = row
		}
		row.NewCount++
		ended := s.Status == models.StatusCancelled || s.Status == models.StatusExpired
		if ended && day(s.UpdatedAt).Equal(key) {
			row.EndedSameDay++
		}
		if ended && inRange(s.UpdatedAt) {
			row.EndedTotal++
		}
		if s.Status == models.StatusActive && inRange(s.UpdatedAt) && !day(s.UpdatedAt).Equal(key) {
			row.RenewedCount++
		}
	}

	out := make([]models.DailySubscriptionReport, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

type memoryUsers struct {
	m *MemoryStore
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) GetByZotloSubscriberID(_ context.Context, subscriberID string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.ZotloSubscriberID != nil && *u.ZotloSubscriberID == subscriberID {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r memoryUsers) AssignZotloSubscriberID(_ context.Context, userID int64, subscriberID string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return "", repositories.ErrNotFound
	}
	if u.ZotloSubscriberID != nil {
		return *u.ZotloSubscriberID, nil
	}
	u.ZotloSubscriberID = &subscriberID
	r.m.users[userID] = u
	return subscriberID, nil
}
