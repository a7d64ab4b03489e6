package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

// InsertPickupUnitIfAbsent stores u unless (order, vendor) already exists.
func (s *Store) InsertPickupUnitIfAbsent(_ context.Context, u *domain.PickupUnit) (bool, error) {
	defer s.lock()()
	key := lineKey{orderID: u.OrderID, vendorID: u.VendorID}
	if _, ok := s.st.pickups[key]; ok {
		return false, nil
	}
	cp := *u
	cp.Date = domain.NormalizeDate(u.Date)
	cp.Items = slices.Clone(u.Items)
	s.st.pickups[key] = cp
	return true, nil
}

// InsertDeliveryUnitIfAbsent stores u unless the order already has one.
func (s *Store) InsertDeliveryUnitIfAbsent(_ context.Context, u *domain.DeliveryUnit) (bool, error) {
	defer s.lock()()
	if _, ok := s.st.deliveries[u.OrderID]; ok {
		return false, nil
	}
	cp := *u
	cp.Date = domain.NormalizeDate(u.Date)
	s.st.deliveries[u.OrderID] = cp
	return true, nil
}

// GetDeliveryUnit returns the delivery unit of an order, or nil.
func (s *Store) GetDeliveryUnit(_ context.Context, orderID string) (*domain.DeliveryUnit, error) {
	defer s.lock()()
	u, ok := s.st.deliveries[orderID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func matchUnit(f fulfillmenttx.UnitFilter, date time.Time, slotID int64, orderID string, courierID int64) bool {
	return (f.Date.IsZero() || sameDate(date, f.Date)) &&
		(f.SlotID == 0 || slotID == f.SlotID) &&
		(f.OrderID == "" || orderID == f.OrderID) &&
		(f.CourierID == 0 || courierID == f.CourierID)
}

// ListPickupUnits returns pickup units matching f ordered by order and vendor.
func (s *Store) ListPickupUnits(_ context.Context, f fulfillmenttx.UnitFilter) ([]domain.PickupUnit, error) {
	defer s.lock()()
	var out []domain.PickupUnit
	for _, u := range s.st.pickups {
		if !matchUnit(f, u.Date, u.SlotID, u.OrderID, u.CourierID) || (f.VendorID != "" && u.VendorID != f.VendorID) {
			continue
		}
		u.Items = slices.Clone(u.Items)
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.PickupUnit) int {
		return cmp.Or(strings.Compare(a.OrderID, b.OrderID), strings.Compare(a.VendorID, b.VendorID))
	})
	return out, nil
}

// ListDeliveryUnits returns delivery units matching f ordered by order.
// A vendor filter selects the orders that vendor contributes to.
func (s *Store) ListDeliveryUnits(_ context.Context, f fulfillmenttx.UnitFilter) ([]domain.DeliveryUnit, error) {
	defer s.lock()()
	var out []domain.DeliveryUnit
	for _, u := range s.st.deliveries {
		if !matchUnit(f, u.Date, u.SlotID, u.OrderID, u.CourierID) {
			continue
		}
		if f.VendorID != "" {
			if _, ok := s.st.pickups[lineKey{orderID: u.OrderID, vendorID: f.VendorID}]; !ok {
				continue
			}
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.DeliveryUnit) int { return strings.Compare(a.OrderID, b.OrderID) })
	return out, nil
}

// UpdatePickupUnit stores status and timestamps of u.
func (s *Store) UpdatePickupUnit(_ context.Context, u *domain.PickupUnit) error {
	defer s.lock()()
	key := lineKey{orderID: u.OrderID, vendorID: u.VendorID}
	cur, ok := s.st.pickups[key]
	if !ok {
		return nil
	}
	cur.Status = u.Status
	cur.CourierID = u.CourierID
	cur.EnRouteAt = u.EnRouteAt
	cur.PickedUpAt = u.PickedUpAt
	s.st.pickups[key] = cur
	return nil
}

// UpdateDeliveryUnit stores status, failure reason and timestamps of u.
func (s *Store) UpdateDeliveryUnit(_ context.Context, u *domain.DeliveryUnit) error {
	defer s.lock()()
	cur, ok := s.st.deliveries[u.OrderID]
	if !ok {
		return nil
	}
	cur.Status = u.Status
	cur.CourierID = u.CourierID
	cur.FailureReason = u.FailureReason
	cur.OutForDeliveryAt = u.OutForDeliveryAt
	cur.DeliveredAt = u.DeliveredAt
	cur.FailedAt = u.FailedAt
	cur.ReturnedAt = u.ReturnedAt
	s.st.deliveries[u.OrderID] = cur
	return nil
}

// DeleteUnitsByDate removes delivery units of date and their pickup units.
func (s *Store) DeleteUnitsByDate(_ context.Context, date time.Time) (int, error) {
	defer s.lock()()
	n := 0
	for orderID, u := range s.st.deliveries {
		if sameDate(u.Date, date) {
			s.deleteOrderUnits(orderID)
			n++
		}
	}
	return n, nil
}

// DeleteOrderUnits removes the delivery unit of an order and its pickup units.
func (s *Store) DeleteOrderUnits(_ context.Context, orderID string) (int, error) {
	defer s.lock()()
	if _, ok := s.st.deliveries[orderID]; !ok {
		return 0, nil
	}
	s.deleteOrderUnits(orderID)
	return 1, nil
}

func (s *Store) deleteOrderUnits(orderID string) {
	delete(s.st.deliveries, orderID)
	for key := range s.st.pickups {
		if key.orderID == orderID {
			delete(s.st.pickups, key)
		}
	}
}
