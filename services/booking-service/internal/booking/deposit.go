package booking

import "github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"

// Base prices in cents. The deposit is a fixed share of the base price.
var basePriceCents = map[model.AppointmentType]int64{
	model.TypeRegularCheckup: 2500,
	model.TypeVaccination:    3000,
	model.TypeEmergency:      7500,
	model.TypeSurgery:        5000,
	model.TypeDental:         4000,
	model.TypeGrooming:       2000,
}

const (
	depositPercent       = 30
	fallbackDepositCents = 1500
)

// DepositFor returns the default deposit for an appointment type, rounded to
// whole currency units.
func DepositFor(t model.AppointmentType) int64 {
	price, ok := basePriceCents[t]
	if !ok {
		return fallbackDepositCents
	}
	units := (price*depositPercent/100 + 50) / 100
	return units * 100
}
