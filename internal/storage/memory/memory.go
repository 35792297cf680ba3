// Package memory provides an in-memory implementation of the storage.Store
// interface. It backs unit tests of the settlement workflow, where spinning
// up a SQLite file per case would add nothing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/centsible-app/centsible/internal/ledger"
	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/storage"
)

// Ensure MemoryStore implements storage.Store
var _ storage.Store = (*MemoryStore)(nil)

// MemoryStore implements storage.Store with maps guarded by a single mutex.
// It mirrors the transactional behavior of the SQLite store: the apply
// callbacks run under the lock and the edge map rolls back when they fail.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	emails   map[string]string // email -> user id
	groups   map[string]*models.Group
	codes    map[string]string            // join code -> group id
	members  map[string]map[string]int64  // group id -> user id -> joined at
	expenses []*models.Expense
	payments []*models.Payment
	edges    map[pairKey]ledger.Edge
}

type pairKey struct {
	groupID string
	lo, hi  string
}

func newPairKey(groupID, a, b string) pairKey {
	lo, hi := ledger.NormalizePair(a, b)
	return pairKey{groupID: groupID, lo: lo, hi: hi}
}

// New returns an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		emails:  make(map[string]string),
		groups:  make(map[string]*models.Group),
		codes:   make(map[string]string),
		members: make(map[string]map[string]int64),
		edges:   make(map[pairKey]ledger.Edge),
	}
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[user.Email]; taken {
		return fmt.Errorf("email %s: %w", user.Email, storage.ErrDuplicate)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = now
	}

	stored := *user
	m.users[stored.ID] = &stored
	m.emails[stored.Email] = stored.ID
	return nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	out := *user
	return &out, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MemoryStore) GetUsersByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			out := *user
			users[id] = &out
		}
	}
	return users, nil
}

func (m *MemoryStore) CreateGroup(_ context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[group.JoinCode]; taken {
		return fmt.Errorf("join code %s: %w", group.JoinCode, storage.ErrDuplicate)
	}
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	stored := *group
	stored.Members = nil
	m.groups[stored.ID] = &stored
	m.codes[stored.JoinCode] = stored.ID
	m.members[stored.ID] = map[string]int64{group.CreatedBy: stored.CreatedAt}

	group.Members = []string{group.CreatedBy}
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getGroupLocked(id)
}

func (m *MemoryStore) GetGroupByJoinCode(_ context.Context, code string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", code, storage.ErrNotFound)
	}
	return m.getGroupLocked(id)
}

func (m *MemoryStore) getGroupLocked(id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}

	out := *group
	out.Members = m.memberListLocked(id)
	return &out, nil
}

// memberListLocked returns member ids ordered by join time, then id, the
// same order the SQLite store produces.
func (m *MemoryStore) memberListLocked(groupID string) []string {
	joined := m.members[groupID]
	members := make([]string, 0, len(joined))
	for id := range joined {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool {
		if joined[members[i]] != joined[members[j]] {
			return joined[members[i]] < joined[members[j]]
		}
		return members[i] < members[j]
	})
	return members
}

func (m *MemoryStore) ListGroupsByMember(_ context.Context, userID string) ([]*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var groups []*models.Group
	for id, joined := range m.members {
		if _, ok := joined[userID]; !ok {
			continue
		}
		out := *m.groups[id]
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt != groups[j].CreatedAt {
			return groups[i].CreatedAt > groups[j].CreatedAt
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (m *MemoryStore) AddGroupMember(_ context.Context, groupID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	joined, ok := m.members[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if _, already := joined[userID]; already {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, storage.ErrDuplicate)
	}
	joined[userID] = time.Now().Unix()
	return nil
}

func (m *MemoryStore) RecordExpense(_ context.Context, expense *models.Expense, apply func(ledger.EdgeStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	for i := range expense.Splits {
		expense.Splits[i].ExpenseID = expense.ID
	}

	if err := m.applyLocked(apply); err != nil {
		return err
	}

	stored := *expense
	stored.Splits = append([]models.SplitAllocation(nil), expense.Splits...)
	m.expenses = append(m.expenses, &stored)
	return nil
}

func (m *MemoryStore) RecordPayment(_ context.Context, payment *models.Payment, apply func(ledger.EdgeStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	if err := m.applyLocked(apply); err != nil {
		return err
	}

	stored := *payment
	m.payments = append(m.payments, &stored)
	return nil
}

// applyLocked runs apply against the edge map and restores the previous map
// when it fails, standing in for a transaction rollback.
func (m *MemoryStore) applyLocked(apply func(ledger.EdgeStore) error) error {
	if apply == nil {
		return nil
	}
	backup := make(map[pairKey]ledger.Edge, len(m.edges))
	for k, v := range m.edges {
		backup[k] = v
	}
	if err := apply(&edgeView{store: m}); err != nil {
		m.edges = backup
		return fmt.Errorf("failed to apply balance deltas: %w", err)
	}
	return nil
}

func (m *MemoryStore) ListGroupEdges(_ context.Context, groupID string) ([]ledger.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var edges []ledger.Edge
	for key, edge := range m.edges {
		if key.groupID == groupID {
			edges = append(edges, edge)
		}
	}
	sortEdges(edges)
	return edges, nil
}

func (m *MemoryStore) ListUserEdges(_ context.Context, userID string) ([]ledger.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var edges []ledger.Edge
	for _, edge := range m.edges {
		if edge.LenderID == userID || edge.BorrowerID == userID {
			edges = append(edges, edge)
		}
	}
	sortEdges(edges)
	return edges, nil
}

func sortEdges(edges []ledger.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		alo, ahi := ledger.NormalizePair(a.LenderID, a.BorrowerID)
		blo, bhi := ledger.NormalizePair(b.LenderID, b.BorrowerID)
		if alo != blo {
			return alo < blo
		}
		return ahi < bhi
	})
}

func (m *MemoryStore) ListGroupExpenses(_ context.Context, groupID string) ([]*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expenses []*models.Expense
	for _, expense := range m.expenses {
		if expense.GroupID != groupID {
			continue
		}
		out := *expense
		out.Splits = append([]models.SplitAllocation(nil), expense.Splits...)
		expenses = append(expenses, &out)
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].CreatedAt > expenses[j].CreatedAt
	})
	return expenses, nil
}

func (m *MemoryStore) ListGroupPayments(_ context.Context, groupID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []*models.Payment
	for _, payment := range m.payments {
		if payment.GroupID != groupID {
			continue
		}
		out := *payment
		payments = append(payments, &out)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].CreatedAt > payments[j].CreatedAt
	})
	return payments, nil
}

func (m *MemoryStore) ListUserActivity(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	inGroup := func(groupID string) bool {
		_, ok := m.members[groupID][userID]
		return ok
	}

	var feed []models.Activity
	for _, e := range m.expenses {
		if !inGroup(e.GroupID) {
			continue
		}
		feed = append(feed, models.Activity{
			Type:        models.ActivityExpense,
			GroupID:     e.GroupID,
			GroupName:   m.groups[e.GroupID].Name,
			ActorID:     e.PayerID,
			Description: e.Description,
			Amount:      e.TotalAmount,
			CreatedAt:   e.CreatedAt,
		})
	}
	for _, p := range m.payments {
		if !inGroup(p.GroupID) {
			continue
		}
		description := p.Note
		if description == "" {
			description = "Payment"
		}
		feed = append(feed, models.Activity{
			Type:        models.ActivityPayment,
			GroupID:     p.GroupID,
			GroupName:   m.groups[p.GroupID].Name,
			ActorID:     p.PayerID,
			Description: description,
			Amount:      p.Amount,
			CreatedAt:   p.CreatedAt,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt > feed[j].CreatedAt
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// edgeView exposes the store's edge map as a ledger.EdgeStore. The caller
// already holds the store lock, so the view does no locking of its own.
type edgeView struct {
	store *MemoryStore
}

var _ ledger.EdgeStore = (*edgeView)(nil)

func (v *edgeView) GetEdge(_ context.Context, groupID, memberA, memberB string) (*ledger.Edge, error) {
	edge, ok := v.store.edges[newPairKey(groupID, memberA, memberB)]
	if !ok {
		return nil, nil
	}
	out := edge
	return &out, nil
}

func (v *edgeView) PutEdge(_ context.Context, edge ledger.Edge) error {
	v.store.edges[newPairKey(edge.GroupID, edge.LenderID, edge.BorrowerID)] = edge
	return nil
}

func (v *edgeView) DeleteEdge(_ context.Context, groupID, memberA, memberB string) error {
	delete(v.store.edges, newPairKey(groupID, memberA, memberB))
	return nil
}
