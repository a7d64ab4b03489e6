package domain

import (
	"fmt"
	"strings"
	"time"
)

// Slot limits.
const (
	MinSlotOrders      = 1
	MaxSlotOrders      = 200
	MaxPickupDelayMins = 1440
	// CapacityRaiseFactor caps runtime capacity changes relative to BaseMaxOrders.
	CapacityRaiseFactor = 1.5
)

// Slot is a named recurring delivery window owned by a sector.
type Slot struct {
	ID                 int64
	SectorID           int64
	Name               string
	StartTime          TimeOfDay
	EndTime            TimeOfDay
	CutoffTime         TimeOfDay
	PickupDelayMinutes int
	MaxOrders          int
	BaseMaxOrders      int
	Active             bool
	Days               Weekdays
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// RunsOn reports whether the slot accepts orders for date.
func (s Slot) RunsOn(date time.Time) bool {
	return s.Active && s.DeletedAt == nil && s.Days.Includes(date.Weekday())
}

// PickupReadyAt is cutoff plus pickup delay on date.
func (s Slot) PickupReadyAt(date time.Time, loc *time.Location) time.Time {
	return s.CutoffTime.On(date, loc).Add(time.Duration(s.PickupDelayMinutes) * time.Minute)
}

// CapacityCeiling is the highest max_orders reachable by a runtime change:
// 1.5 times the defined base, never above MaxSlotOrders.
func (s Slot) CapacityCeiling() int {
	base := s.BaseMaxOrders
	if base <= 0 {
		base = s.MaxOrders
	}
	return min(int(float64(base)*CapacityRaiseFactor), MaxSlotOrders)
}

// SlotSpec is the operator input for creating or redefining a slot.
// Nil fields are reported as missing; nothing is defaulted.
type SlotSpec struct {
	SectorID           *int64
	Name               string
	StartTime          *string
	EndTime            *string
	CutoffTime         *string
	PickupDelayMinutes *int
	MaxOrders          *int
	Active             *bool
	DayOfWeek          []int
}

// Build validates the spec and returns the slot it describes.
// Every violated constraint is returned, not just the first one.
func (sp SlotSpec) Build() (Slot, []string) {
	var (
		violations []string
		slot       = Slot{Name: strings.TrimSpace(sp.Name), Active: true}
	)
	if slot.Name == "" {
		violations = append(violations, "name is required")
	}
	if sp.SectorID == nil {
		violations = append(violations, "sector_id is required")
	} else if *sp.SectorID <= 0 {
		violations = append(violations, "sector_id must be positive")
	} else {
		slot.SectorID = *sp.SectorID
	}

	start, okStart := parseField("start_time", sp.StartTime, &violations)
	end, okEnd := parseField("end_time", sp.EndTime, &violations)
	cutoff, okCutoff := parseField("cutoff_time", sp.CutoffTime, &violations)
	if okStart && okEnd && start >= end {
		violations = append(violations, fmt.Sprintf("start_time %s must be before end_time %s", start, end))
	}
	if okStart && okCutoff && cutoff > start {
		violations = append(violations, fmt.Sprintf("cutoff_time %s must not be after start_time %s", cutoff, start))
	}
	slot.StartTime, slot.EndTime, slot.CutoffTime = start, end, cutoff

	switch {
	case sp.PickupDelayMinutes == nil:
		violations = append(violations, "pickup_delay_minutes is required")
	case *sp.PickupDelayMinutes < 0 || *sp.PickupDelayMinutes > MaxPickupDelayMins:
		violations = append(violations, fmt.Sprintf("pickup_delay_minutes must be within 0..%d", MaxPickupDelayMins))
	default:
		slot.PickupDelayMinutes = *sp.PickupDelayMinutes
	}

	switch {
	case sp.MaxOrders == nil:
		violations = append(violations, "max_orders is required")
	case *sp.MaxOrders < MinSlotOrders || *sp.MaxOrders > MaxSlotOrders:
		violations = append(violations, fmt.Sprintf("max_orders must be within %d..%d", MinSlotOrders, MaxSlotOrders))
	default:
		slot.MaxOrders = *sp.MaxOrders
		slot.BaseMaxOrders = *sp.MaxOrders
	}

	if sp.Active != nil {
		slot.Active = *sp.Active
	}
	days, err := NewWeekdays(sp.DayOfWeek)
	if err != nil {
		violations = append(violations, err.Error())
	}
	slot.Days = days

	return slot, violations
}

func parseField(name string, raw *string, violations *[]string) (TimeOfDay, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		*violations = append(*violations, name+" is required")
		return 0, false
	}
	t, err := ParseTimeOfDay(*raw)
	if err != nil {
		*violations = append(*violations, fmt.Sprintf("%s: %v", name, err))
		return 0, false
	}
	return t, true
}
