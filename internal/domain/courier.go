package domain

import "time"

// CourierVehicleType represents the vehicle a courier uses.
type CourierVehicleType string

// Courier represents a delivery courier from the courier directory.
type Courier struct {
	ID                   int64
	ProfileRef           string
	Name                 string
	Phone                string
	VehicleType          CourierVehicleType
	Verified             bool
	Active               bool
	CoveragePincodes     []string
	Rating               float64
	TotalDeliveries      int
	SuccessfulDeliveries int
	CreatedAt            time.Time
}

// PartialCourierUpdate carries optional fields to update a courier.
// A nil field means “do not change” that attribute.
type PartialCourierUpdate struct {
	ID               int64
	Name             *string
	Phone            *string
	VehicleType      *CourierVehicleType
	Verified         *bool
	Active           *bool
	CoveragePincodes *[]string
	Rating           *float64
}

// CourierCandidate is a directory entry considered by auto-assignment.
type CourierCandidate struct {
	CourierID            int64
	Active               bool
	Verified             bool
	CoveragePincodes     []string
	DailyAssignmentCount int
	Rating               float64
}
