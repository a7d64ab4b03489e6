package domain

import "regexp"

// List of courier vehicle types
const (
	VehicleFoot    CourierVehicleType = "on_foot"
	VehicleBicycle CourierVehicleType = "bicycle"
	VehicleScooter CourierVehicleType = "scooter"
	VehicleCar     CourierVehicleType = "car"
)

var allowedVehicleTypes = [...]CourierVehicleType{
	VehicleFoot, VehicleBicycle, VehicleScooter, VehicleCar,
}

// Valid checks if the CourierVehicleType is valid
func (t CourierVehicleType) Valid() bool {
	for _, v := range allowedVehicleTypes {
		if t == v {
			return true
		}
	}
	return false
}

// rePhone is a regex to validate phone numbers
var rePhone = regexp.MustCompile(`^\+[0-9]{11,12}$`)

// ValidatePhone validates the phone number format
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
