package handlers

import (
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/capacity"
	"service-fulfillment/internal/service/dashboard"
	"service-fulfillment/internal/service/fulfillment"
)

type courierDTO struct {
	ID                   int64                     `json:"id"`
	ProfileRef           string                    `json:"profile_ref,omitempty"`
	Name                 string                    `json:"name"`
	Phone                string                    `json:"phone"`
	VehicleType          domain.CourierVehicleType `json:"vehicle_type"`
	Verified             bool                      `json:"verified"`
	Active               bool                      `json:"active"`
	CoveragePincodes     []string                  `json:"coverage_pincodes"`
	Rating               float64                   `json:"rating"`
	TotalDeliveries      int                       `json:"total_deliveries"`
	SuccessfulDeliveries int                       `json:"successful_deliveries"`
}

type createCourierRequest struct {
	ProfileRef       string                    `json:"profile_ref"`
	Name             string                    `json:"name"`
	Phone            string                    `json:"phone"`
	VehicleType      domain.CourierVehicleType `json:"vehicle_type"`
	Verified         bool                      `json:"verified"`
	Active           *bool                     `json:"active,omitempty"`
	CoveragePincodes []string                  `json:"coverage_pincodes"`
	Rating           float64                   `json:"rating"`
}

type updateCourierRequest struct {
	Name             *string                    `json:"name,omitempty"`
	Phone            *string                    `json:"phone,omitempty"`
	VehicleType      *domain.CourierVehicleType `json:"vehicle_type,omitempty"`
	Verified         *bool                      `json:"verified,omitempty"`
	Active           *bool                      `json:"active,omitempty"`
	CoveragePincodes *[]string                  `json:"coverage_pincodes,omitempty"`
	Rating           *float64                   `json:"rating,omitempty"`
}

type sectorDTO struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	City     string   `json:"city"`
	Pincodes []string `json:"pincodes"`
	Active   bool     `json:"active"`
}

type createSectorRequest struct {
	Name     string   `json:"name"`
	City     string   `json:"city"`
	Pincodes []string `json:"pincodes"`
}

type updateSectorRequest struct {
	Active *bool `json:"active"`
}

type slotRequest struct {
	SectorID           *int64  `json:"sector_id"`
	Name               string  `json:"name"`
	StartTime          *string `json:"start_time"`
	EndTime            *string `json:"end_time"`
	CutoffTime         *string `json:"cutoff_time"`
	PickupDelayMinutes *int    `json:"pickup_delay_minutes"`
	MaxOrders          *int    `json:"max_orders"`
	Active             *bool   `json:"active,omitempty"`
	DayOfWeek          []int   `json:"day_of_week,omitempty"`
}

type slotDTO struct {
	ID                 int64            `json:"id"`
	SectorID           int64            `json:"sector_id"`
	Name               string           `json:"name"`
	StartTime          domain.TimeOfDay `json:"start_time"`
	EndTime            domain.TimeOfDay `json:"end_time"`
	CutoffTime         domain.TimeOfDay `json:"cutoff_time"`
	PickupDelayMinutes int              `json:"pickup_delay_minutes"`
	MaxOrders          int              `json:"max_orders"`
	BaseMaxOrders      int              `json:"base_max_orders"`
	Active             bool             `json:"active"`
	DayOfWeek          []int            `json:"day_of_week"`
}

type capacityRequest struct {
	MaxOrders *int `json:"max_orders"`
}

type admissionDTO struct {
	SlotID    int64  `json:"slot_id"`
	Date      string `json:"date"`
	Committed int    `json:"committed"`
	MaxOrders int    `json:"max_orders"`
}

type utilizationDTO struct {
	SlotID            int64   `json:"slot_id"`
	Date              string  `json:"date"`
	Committed         int     `json:"committed"`
	MaxOrders         int     `json:"max_orders"`
	Utilization       float64 `json:"utilization"`
	NearCapacity      bool    `json:"near_capacity"`
	AutoPauseEligible bool    `json:"auto_pause_eligible"`
}

type assignRequest struct {
	CourierIDs []int64 `json:"courier_ids"`
	SectorID   int64   `json:"sector_id"`
	SlotID     int64   `json:"slot_id"`
	Date       string  `json:"date"`
	Capacity   int     `json:"capacity,omitempty"`
}

type assignmentDTO struct {
	ID            int64                   `json:"id"`
	CourierID     int64                   `json:"courier_id"`
	SectorID      int64                   `json:"sector_id"`
	SlotID        int64                   `json:"slot_id"`
	Date          string                  `json:"date"`
	Status        domain.AssignmentStatus `json:"status"`
	MaxOrders     int                     `json:"max_orders"`
	CurrentOrders int                     `json:"current_orders"`
	AssignedAt    time.Time               `json:"assigned_at"`
}

type assignResponse struct {
	Created     int             `json:"created"`
	Skipped     int             `json:"skipped"`
	Assignments []assignmentDTO `json:"assignments"`
}

type autoAssignResponse struct {
	AssignmentsCreated int     `json:"assignments_created"`
	OrdersBound        int     `json:"orders_bound"`
	UncoveredSlots     []int64 `json:"uncovered_slots"`
}

type resetResponse struct {
	Removed      int `json:"removed"`
	UnitsRemoved int `json:"units_removed"`
}

type pickupFailureRequest struct {
	Reason string `json:"reason"`
}

type pickupResponse struct {
	SlotID    int64               `json:"slot_id"`
	VendorID  string              `json:"vendor_id"`
	Date      string              `json:"date"`
	Status    domain.PickupStatus `json:"status"`
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	OrderIDs  []string            `json:"order_ids"`
}

type orderActionRequest struct {
	CourierID int64  `json:"courier_id"`
	Reason    string `json:"reason,omitempty"`
}

type deliveryDTO struct {
	OrderID       string                `json:"order_id"`
	SlotID        int64                 `json:"slot_id"`
	Date          string                `json:"date"`
	CourierID     int64                 `json:"courier_id"`
	Status        domain.DeliveryStatus `json:"status"`
	FailureReason string                `json:"failure_reason,omitempty"`
}

type boardOrderDTO struct {
	OrderID        string                `json:"order_id"`
	CourierID      int64                 `json:"courier_id"`
	PickupStatus   domain.PickupStatus   `json:"pickup_status"`
	DeliveryStatus domain.DeliveryStatus `json:"delivery_status"`
	Items          []domain.Item         `json:"items"`
}

type boardVendorDTO struct {
	VendorID     string                   `json:"vendor_id"`
	PickupStatus domain.OrderPickupStatus `json:"pickup_status"`
	Orders       []boardOrderDTO          `json:"orders"`
}

type boardCourierDTO struct {
	CourierID     int64                   `json:"courier_id"`
	Status        domain.AssignmentStatus `json:"status"`
	MaxOrders     int                     `json:"max_orders"`
	CurrentOrders int                     `json:"current_orders"`
}

type boardSlotDTO struct {
	Slot          slotDTO           `json:"slot"`
	Date          string            `json:"date"`
	Status        domain.SlotStatus `json:"status"`
	PickupReadyAt time.Time         `json:"pickup_ready_at"`
	Capacity      utilizationDTO    `json:"capacity"`
	Couriers      []boardCourierDTO `json:"couriers"`
	Vendors       []boardVendorDTO  `json:"vendors"`
}

func (req createCourierRequest) toModel() *domain.Courier {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &domain.Courier{
		ProfileRef:       req.ProfileRef,
		Name:             req.Name,
		Phone:            req.Phone,
		VehicleType:      req.VehicleType,
		Verified:         req.Verified,
		Active:           active,
		CoveragePincodes: req.CoveragePincodes,
		Rating:           req.Rating,
	}
}

func (req updateCourierRequest) toModel(id int64) domain.PartialCourierUpdate {
	return domain.PartialCourierUpdate{
		ID:               id,
		Name:             req.Name,
		Phone:            req.Phone,
		VehicleType:      req.VehicleType,
		Verified:         req.Verified,
		Active:           req.Active,
		CoveragePincodes: req.CoveragePincodes,
		Rating:           req.Rating,
	}
}

func courierToResponse(c domain.Courier) courierDTO {
	pincodes := c.CoveragePincodes
	if pincodes == nil {
		pincodes = []string{}
	}
	return courierDTO{
		ID:                   c.ID,
		ProfileRef:           c.ProfileRef,
		Name:                 c.Name,
		Phone:                c.Phone,
		VehicleType:          c.VehicleType,
		Verified:             c.Verified,
		Active:               c.Active,
		CoveragePincodes:     pincodes,
		Rating:               c.Rating,
		TotalDeliveries:      c.TotalDeliveries,
		SuccessfulDeliveries: c.SuccessfulDeliveries,
	}
}

func couriersToResponse(list []domain.Courier) []courierDTO {
	out := make([]courierDTO, 0, len(list))
	for _, c := range list {
		out = append(out, courierToResponse(c))
	}
	return out
}

func sectorToResponse(s domain.Sector) sectorDTO {
	pincodes := s.Pincodes
	if pincodes == nil {
		pincodes = []string{}
	}
	return sectorDTO{ID: s.ID, Name: s.Name, City: s.City, Pincodes: pincodes, Active: s.Active}
}

func (req slotRequest) toSpec() domain.SlotSpec {
	return domain.SlotSpec{
		SectorID:           req.SectorID,
		Name:               req.Name,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		CutoffTime:         req.CutoffTime,
		PickupDelayMinutes: req.PickupDelayMinutes,
		MaxOrders:          req.MaxOrders,
		Active:             req.Active,
		DayOfWeek:          req.DayOfWeek,
	}
}

func slotToResponse(s domain.Slot) slotDTO {
	return slotDTO{
		ID:                 s.ID,
		SectorID:           s.SectorID,
		Name:               s.Name,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		CutoffTime:         s.CutoffTime,
		PickupDelayMinutes: s.PickupDelayMinutes,
		MaxOrders:          s.MaxOrders,
		BaseMaxOrders:      s.BaseMaxOrders,
		Active:             s.Active,
		DayOfWeek:          s.Days.Days(),
	}
}

func admissionToResponse(a capacity.Admission) admissionDTO {
	return admissionDTO{SlotID: a.SlotID, Date: domain.FormatDate(a.Date), Committed: a.Committed, MaxOrders: a.MaxOrders}
}

func utilizationToResponse(u capacity.Utilization) utilizationDTO {
	return utilizationDTO{
		SlotID:            u.SlotID,
		Date:              domain.FormatDate(u.Date),
		Committed:         u.Committed,
		MaxOrders:         u.MaxOrders,
		Utilization:       u.Utilization,
		NearCapacity:      u.NearCapacity,
		AutoPauseEligible: u.AutoPauseEligible,
	}
}

func assignmentToResponse(a domain.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:            a.ID,
		CourierID:     a.CourierID,
		SectorID:      a.SectorID,
		SlotID:        a.SlotID,
		Date:          domain.FormatDate(a.Date),
		Status:        a.Status,
		MaxOrders:     a.MaxOrders,
		CurrentOrders: a.CurrentOrders,
		AssignedAt:    a.AssignedAt,
	}
}

func assignmentsToResponse(list []domain.Assignment) []assignmentDTO {
	out := make([]assignmentDTO, 0, len(list))
	for _, a := range list {
		out = append(out, assignmentToResponse(a))
	}
	return out
}

func assignResultToResponse(r assignment.AssignResult) assignResponse {
	return assignResponse{Created: r.Created, Skipped: r.Skipped, Assignments: assignmentsToResponse(r.Assignments)}
}

func autoAssignToResponse(r assignment.AutoAssignResult) autoAssignResponse {
	uncovered := r.UncoveredSlots
	if uncovered == nil {
		uncovered = []int64{}
	}
	return autoAssignResponse{AssignmentsCreated: r.AssignmentsCreated, OrdersBound: r.OrdersBound, UncoveredSlots: uncovered}
}

func pickupToResponse(r fulfillment.PickupResult) pickupResponse {
	ids := r.OrderIDs
	if ids == nil {
		ids = []string{}
	}
	return pickupResponse{
		SlotID:    r.SlotID,
		VendorID:  r.VendorID,
		Date:      domain.FormatDate(r.Date),
		Status:    r.Status,
		Updated:   r.Updated,
		Unchanged: r.Unchanged,
		OrderIDs:  ids,
	}
}

func deliveryToResponse(u domain.DeliveryUnit) deliveryDTO {
	return deliveryDTO{
		OrderID:       u.OrderID,
		SlotID:        u.SlotID,
		Date:          domain.FormatDate(u.Date),
		CourierID:     u.CourierID,
		Status:        u.Status,
		FailureReason: u.FailureReason,
	}
}

func boardToResponse(views []dashboard.SlotView) []boardSlotDTO {
	out := make([]boardSlotDTO, 0, len(views))
	for _, v := range views {
		slot := boardSlotDTO{
			Slot:          slotToResponse(v.Slot),
			Date:          domain.FormatDate(v.Date),
			Status:        v.Status,
			PickupReadyAt: v.PickupReadyAt,
			Capacity:      utilizationToResponse(v.Capacity),
			Couriers:      make([]boardCourierDTO, 0, len(v.Couriers)),
			Vendors:       make([]boardVendorDTO, 0, len(v.Vendors)),
		}
		for _, c := range v.Couriers {
			slot.Couriers = append(slot.Couriers, boardCourierDTO(c))
		}
		for _, vv := range v.Vendors {
			vendor := boardVendorDTO{VendorID: vv.VendorID, PickupStatus: vv.PickupStatus, Orders: make([]boardOrderDTO, 0, len(vv.Orders))}
			for _, o := range vv.Orders {
				vendor.Orders = append(vendor.Orders, boardOrderDTO(o))
			}
			slot.Vendors = append(slot.Vendors, vendor)
		}
		out = append(out, slot)
	}
	return out
}
