package apportion

import (
	"fmt"
	"math"
)

// QuotaRow is one line of the seat report.
type QuotaRow struct {
	Region        string  `json:"region"`
	Population    int64   `json:"population"`
	Seats         int     `json:"seats"`
	QuotaFloor    int     `json:"quota_floor"`
	Quota         float64 `json:"quota"`
	QuotaCeil     int     `json:"quota_ceil"`
	PeoplePerSeat int64   `json:"people_per_seat"`
}

// Quota returns a region's ideal share of the house:
//
//	totalSeats × P / ΣP
func Quota(population, totalPopulation int64, totalSeats int) float64 {
	if totalPopulation == 0 {
		return 0
	}
	return float64(totalSeats) * float64(population) / float64(totalPopulation)
}

// Quotas builds the seat report for an allocation, sorted by region name.
// The allocation must cover exactly the regions of t.
func Quotas(t Table, a Allocation) ([]QuotaRow, error) {
	if len(a) != t.Len() {
		return nil, fmt.Errorf("%w: table has %d regions, allocation %d", ErrKeyMismatch, t.Len(), len(a))
	}

	totalPop := t.Total()
	totalSeats := a.Total()

	rows := make([]QuotaRow, 0, len(a))
	for _, name := range a.Names() {
		pop, ok := t.Population(name)
		if !ok {
			return nil, fmt.Errorf("%w: region %q not in population table", ErrKeyMismatch, name)
		}
		q := Quota(pop, totalPop, totalSeats)
		rows = append(rows, QuotaRow{
			Region:        name,
			Population:    pop,
			Seats:         a[name],
			QuotaFloor:    int(math.Floor(q)),
			Quota:         q,
			QuotaCeil:     int(math.Ceil(q)),
			PeoplePerSeat: pop / int64(a[name]),
		})
	}
	return rows, nil
}
