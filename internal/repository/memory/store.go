// Package memory is an in-process implementation of fulfillmenttx.Store.
// It backs the STORE_DRIVER=memory mode and the service tests.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

var _ fulfillmenttx.Store = (*Store)(nil)

type capacityKey struct {
	slotID int64
	date   time.Time
}

type lineKey struct {
	orderID  string
	vendorID string
}

type state struct {
	sectors     map[int64]domain.Sector
	slots       map[int64]domain.Slot
	capacity    map[capacityKey]int
	couriers    map[int64]domain.Courier
	assignments map[int64]domain.Assignment
	lines       map[lineKey]domain.OrderLine
	deliveries  map[string]domain.DeliveryUnit
	pickups     map[lineKey]domain.PickupUnit

	nextSector, nextSlot, nextCourier, nextAssignment int64
}

func newState() *state {
	return &state{
		sectors:     make(map[int64]domain.Sector),
		slots:       make(map[int64]domain.Slot),
		capacity:    make(map[capacityKey]int),
		couriers:    make(map[int64]domain.Courier),
		assignments: make(map[int64]domain.Assignment),
		lines:       make(map[lineKey]domain.OrderLine),
		deliveries:  make(map[string]domain.DeliveryUnit),
		pickups:     make(map[lineKey]domain.PickupUnit),
	}
}

// clone copies every map. Stored values are never mutated in place, so a
// shallow copy of each map is a full snapshot.
func (st *state) clone() *state {
	cp := *st
	cp.sectors = maps.Clone(st.sectors)
	cp.slots = maps.Clone(st.slots)
	cp.capacity = maps.Clone(st.capacity)
	cp.couriers = maps.Clone(st.couriers)
	cp.assignments = maps.Clone(st.assignments)
	cp.lines = maps.Clone(st.lines)
	cp.deliveries = maps.Clone(st.deliveries)
	cp.pickups = maps.Clone(st.pickups)
	return &cp
}

// Store is safe for concurrent use. A transaction holds the store lock for
// its whole duration and works on a snapshot that replaces the live state
// only when fn succeeds.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
	now  func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState(), now: time.Now}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx runs fn against a snapshot and commits it when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx fulfillmenttx.Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: snapshot, inTx: true, now: s.now}); err != nil {
		return err
	}
	*s.st = *snapshot
	return nil
}

func sameDate(a, b time.Time) bool {
	return domain.NormalizeDate(a).Equal(domain.NormalizeDate(b))
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, less)
	return out
}

// ---- sectors ----

// GetSector returns a sector by id, or nil if it does not exist.
func (s *Store) GetSector(_ context.Context, id int64) (*domain.Sector, error) {
	defer s.lock()()
	sec, ok := s.st.sectors[id]
	if !ok {
		return nil, nil
	}
	sec.Pincodes = slices.Clone(sec.Pincodes)
	return &sec, nil
}

// ListSectors returns all sectors ordered by id.
func (s *Store) ListSectors(_ context.Context) ([]domain.Sector, error) {
	defer s.lock()()
	return sortedValues(s.st.sectors, func(a, b domain.Sector) int { return cmp.Compare(a.ID, b.ID) }), nil
}

// InsertSector stores sec and fills its id.
func (s *Store) InsertSector(_ context.Context, sec *domain.Sector) error {
	defer s.lock()()
	s.st.nextSector++
	sec.ID = s.st.nextSector
	sec.CreatedAt = s.now()
	cp := *sec
	cp.Pincodes = slices.Clone(sec.Pincodes)
	s.st.sectors[sec.ID] = cp
	return nil
}

// SetSectorActive toggles activation and reports whether the sector exists.
func (s *Store) SetSectorActive(_ context.Context, id int64, active bool) (bool, error) {
	defer s.lock()()
	sec, ok := s.st.sectors[id]
	if !ok {
		return false, nil
	}
	sec.Active = active
	s.st.sectors[id] = sec
	return true, nil
}

// ---- slots ----

// GetSlot returns a slot by id, including soft-deleted ones.
func (s *Store) GetSlot(_ context.Context, id int64) (*domain.Slot, error) {
	defer s.lock()()
	slot, ok := s.st.slots[id]
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

// ListSlots returns live slots ordered by sector, start time and id.
func (s *Store) ListSlots(_ context.Context, f fulfillmenttx.SlotFilter) ([]domain.Slot, error) {
	defer s.lock()()
	var out []domain.Slot
	for _, slot := range s.st.slots {
		if slot.DeletedAt != nil ||
			(f.SectorID != 0 && slot.SectorID != f.SectorID) ||
			(f.ActiveOnly && !slot.Active) {
			continue
		}
		out = append(out, slot)
	}
	slices.SortFunc(out, func(a, b domain.Slot) int {
		return cmp.Or(cmp.Compare(a.SectorID, b.SectorID), cmp.Compare(a.StartTime, b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// InsertSlot stores slot and fills its id.
func (s *Store) InsertSlot(_ context.Context, slot *domain.Slot) error {
	defer s.lock()()
	s.st.nextSlot++
	slot.ID = s.st.nextSlot
	slot.CreatedAt = s.now()
	slot.UpdatedAt = slot.CreatedAt
	s.st.slots[slot.ID] = *slot
	return nil
}

// UpdateSlot overwrites a live slot.
func (s *Store) UpdateSlot(_ context.Context, slot *domain.Slot) error {
	defer s.lock()()
	cur, ok := s.st.slots[slot.ID]
	if !ok || cur.DeletedAt != nil {
		return nil
	}
	slot.CreatedAt = cur.CreatedAt
	slot.UpdatedAt = s.now()
	s.st.slots[slot.ID] = *slot
	return nil
}

// SoftDeleteSlot marks a slot deleted and inactive.
func (s *Store) SoftDeleteSlot(_ context.Context, id int64, at time.Time) error {
	defer s.lock()()
	slot, ok := s.st.slots[id]
	if !ok || slot.DeletedAt != nil {
		return nil
	}
	slot.DeletedAt = &at
	slot.Active = false
	slot.UpdatedAt = s.now()
	s.st.slots[id] = slot
	return nil
}

// SlotReferences counts unfinished assignments and unresolved orders of a slot on or after from.
func (s *Store) SlotReferences(_ context.Context, slotID int64, from time.Time) (fulfillmenttx.SlotReferences, error) {
	defer s.lock()()
	var refs fulfillmenttx.SlotReferences
	from = domain.NormalizeDate(from)
	for _, a := range s.st.assignments {
		if a.SlotID == slotID && !a.Date.Before(from) && a.Status != domain.AssignmentCompleted {
			refs.ActiveAssignments++
		}
	}
	seen := make(map[string]struct{})
	for _, l := range s.st.lines {
		if l.SlotID != slotID || l.Canceled || l.Date.Before(from) {
			continue
		}
		if du, ok := s.st.deliveries[l.OrderID]; ok && du.Status.Terminal() {
			continue
		}
		seen[l.OrderID] = struct{}{}
	}
	refs.UnresolvedOrders = len(seen)
	return refs, nil
}

// ---- capacity ----

// TryAdmit increments the counter while it is below the slot's max_orders.
func (s *Store) TryAdmit(_ context.Context, slotID int64, date time.Time) (int, bool, error) {
	defer s.lock()()
	key := capacityKey{slotID: slotID, date: domain.NormalizeDate(date)}
	committed := s.st.capacity[key]
	slot, ok := s.st.slots[slotID]
	if !ok || slot.DeletedAt != nil || committed >= slot.MaxOrders {
		return committed, false, nil
	}
	committed++
	s.st.capacity[key] = committed
	return committed, true, nil
}

// Release decrements the counter if it is positive.
func (s *Store) Release(_ context.Context, slotID int64, date time.Time) (int, bool, error) {
	defer s.lock()()
	key := capacityKey{slotID: slotID, date: domain.NormalizeDate(date)}
	committed, ok := s.st.capacity[key]
	if !ok || committed == 0 {
		return 0, false, nil
	}
	committed--
	s.st.capacity[key] = committed
	return committed, true, nil
}

// Committed returns the counter of (slotID, date).
func (s *Store) Committed(_ context.Context, slotID int64, date time.Time) (int, error) {
	defer s.lock()()
	return s.st.capacity[capacityKey{slotID: slotID, date: domain.NormalizeDate(date)}], nil
}

// MaxCommittedFrom returns the highest counter of slotID on or after from.
func (s *Store) MaxCommittedFrom(_ context.Context, slotID int64, from time.Time) (int, error) {
	defer s.lock()()
	from = domain.NormalizeDate(from)
	best := 0
	for k, v := range s.st.capacity {
		if k.slotID == slotID && !k.date.Before(from) && v > best {
			best = v
		}
	}
	return best, nil
}
