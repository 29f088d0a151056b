package matching

import "github.com/motoclube/roleplanner/internal/domain"

// defaultDwellHours applies to categories missing from dwellByCategory.
const defaultDwellHours = 3

// minDwellHours is the floor after tag adjustments.
const minDwellHours = 1

var dwellByCategory = map[domain.Category]float64{
	domain.CategoryUrban:       2,
	domain.CategoryHistoric:    3,
	domain.CategoryGastronomic: 3,
	domain.CategoryAdventure:   4,
	domain.CategoryBeach:       4,
	domain.CategoryMountain:    5,
}

// DwellHours estimates how long riders stay at the destination.
// "relaxing" and "adventure" tags add an hour each, "quick" removes one.
func DwellHours(d domain.Destination) float64 {
	h, ok := dwellByCategory[d.Category]
	if !ok {
		h = defaultDwellHours
	}
	if d.HasTag("relaxing") {
		h++
	}
	if d.HasTag("adventure") {
		h++
	}
	if d.HasTag("quick") {
		h--
	}
	if h < minDwellHours {
		h = minDwellHours
	}
	return h
}

// Feasibility decides whether a round trip to d fits in w.
// Travel each way uses the upper bound of the travel time range. A window
// whose return precedes its departure has no available hours.
func Feasibility(d domain.Destination, w domain.TimeWindow) domain.Feasibility {
	travel := d.TravelTime.MaxHours
	dwell := DwellHours(d)
	required := travel + dwell + travel
	available := w.AvailableHours()

	return domain.Feasibility{
		Fits:           available >= required,
		AvailableHours: available,
		RequiredHours:  required,
		SlackHours:     available - required,
		Breakdown: domain.HoursBreakdown{
			OutboundHours: travel,
			DwellHours:    dwell,
			ReturnHours:   travel,
		},
	}
}
