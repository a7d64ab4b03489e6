package dashboard

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/service/capacity"
)

// SlotData is everything stored about one slot on one date.
type SlotData struct {
	Slot        domain.Slot
	Committed   int
	Assignments []domain.Assignment
	Pickups     []domain.PickupUnit
	Deliveries  []domain.DeliveryUnit
}

// OrderView is one order as seen from one vendor.
type OrderView struct {
	OrderID        string
	CourierID      int64
	PickupStatus   domain.PickupStatus
	DeliveryStatus domain.DeliveryStatus
	Items          []domain.Item
}

// VendorView groups the orders of one vendor in a slot.
type VendorView struct {
	VendorID     string
	PickupStatus domain.OrderPickupStatus
	Orders       []OrderView
}

// CourierView is one courier binding of a slot.
type CourierView struct {
	CourierID     int64
	Status        domain.AssignmentStatus
	MaxOrders     int
	CurrentOrders int
}

// SlotView is the operator view of a slot on a date.
type SlotView struct {
	Slot          domain.Slot
	Date          time.Time
	Status        domain.SlotStatus
	PickupReadyAt time.Time
	Capacity      capacity.Utilization
	Couriers      []CourierView
	Vendors       []VendorView
}

// Project builds slot views from stored rows. It performs no I/O.
func Project(date, now time.Time, loc *time.Location, data []SlotData) []SlotView {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]SlotView, 0, len(data))
	for _, d := range data {
		out = append(out, projectSlot(date, now, loc, d))
	}
	slices.SortFunc(out, func(a, b SlotView) int {
		return cmp.Or(
			cmp.Compare(a.Slot.SectorID, b.Slot.SectorID),
			cmp.Compare(a.Slot.StartTime, b.Slot.StartTime),
			cmp.Compare(a.Slot.ID, b.Slot.ID),
		)
	})
	return out
}

func projectSlot(date, now time.Time, loc *time.Location, d SlotData) SlotView {
	readyAt := d.Slot.PickupReadyAt(date, loc)
	deliveries := make(map[string]domain.DeliveryUnit, len(d.Deliveries))
	for _, u := range d.Deliveries {
		deliveries[u.OrderID] = u
	}

	byOrder := make(map[string][]domain.PickupStatus)
	byVendor := make(map[string][]domain.PickupUnit)
	for _, p := range d.Pickups {
		byOrder[p.OrderID] = append(byOrder[p.OrderID], p.Status)
		byVendor[p.VendorID] = append(byVendor[p.VendorID], p)
	}

	progress := make([]domain.OrderProgress, 0, len(deliveries))
	for _, orderID := range slices.Sorted(maps.Keys(deliveries)) {
		progress = append(progress, domain.OrderProgress{
			Pickups:  byOrder[orderID],
			Delivery: deliveries[orderID].Status,
		})
	}

	view := SlotView{
		Slot:          d.Slot,
		Date:          date,
		Status:        domain.DeriveSlotStatus(now, readyAt, progress),
		PickupReadyAt: readyAt,
		Capacity:      capacity.NewUtilization(d.Slot.ID, date, d.Committed, d.Slot.MaxOrders),
		Couriers:      make([]CourierView, 0, len(d.Assignments)),
		Vendors:       make([]VendorView, 0, len(byVendor)),
	}
	for _, a := range d.Assignments {
		view.Couriers = append(view.Couriers, CourierView{
			CourierID:     a.CourierID,
			Status:        a.Status,
			MaxOrders:     a.MaxOrders,
			CurrentOrders: a.CurrentOrders,
		})
	}
	slices.SortFunc(view.Couriers, func(a, b CourierView) int { return cmp.Compare(a.CourierID, b.CourierID) })

	for _, vendorID := range slices.Sorted(maps.Keys(byVendor)) {
		units := byVendor[vendorID]
		slices.SortFunc(units, func(a, b domain.PickupUnit) int { return strings.Compare(a.OrderID, b.OrderID) })
		vv := VendorView{VendorID: vendorID, Orders: make([]OrderView, 0, len(units))}
		statuses := make([]domain.PickupStatus, 0, len(units))
		for _, p := range units {
			statuses = append(statuses, p.Status)
			ov := OrderView{
				OrderID:      p.OrderID,
				CourierID:    p.CourierID,
				PickupStatus: p.Status,
				Items:        p.Items,
			}
			if du, ok := deliveries[p.OrderID]; ok {
				ov.DeliveryStatus = du.Status
				ov.CourierID = du.CourierID
			}
			vv.Orders = append(vv.Orders, ov)
		}
		vv.PickupStatus = domain.AggregatePickup(statuses)
		view.Vendors = append(view.Vendors, vv)
	}
	return view
}
