package apportion

import (
	"fmt"
	"maps"
	"sort"
)

// Region is one row of a population table.
type Region struct {
	Name       string
	Population int64
}

// Table is an ordered, immutable population table.
//
// Order matters: it is the input order of the regions and the tie-break
// order of the engine (earliest region wins an exact priority tie).
// Populations may be negative so that noisy tables can be apportioned;
// loaders of real data reject negative counts themselves.
type Table struct {
	regions []Region
	index   map[string]int
}

// NewTable validates and copies regions into a Table.
func NewTable(regions []Region) (Table, error) {
	if len(regions) == 0 {
		return Table{}, fmt.Errorf("%w: empty population table", ErrInvalidInput)
	}

	t := Table{
		regions: make([]Region, len(regions)),
		index:   make(map[string]int, len(regions)),
	}
	for i, r := range regions {
		if r.Name == "" {
			return Table{}, fmt.Errorf("%w: region %d has an empty name", ErrInvalidInput, i)
		}
		if _, dup := t.index[r.Name]; dup {
			return Table{}, fmt.Errorf("%w: duplicate region %q", ErrInvalidInput, r.Name)
		}
		t.regions[i] = r
		t.index[r.Name] = i
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and literals.
func MustTable(regions ...Region) Table {
	t, err := NewTable(regions)
	if err != nil {
		panic(fmt.Sprintf("apportion: %v", err))
	}
	return t
}

// Len returns the number of regions.
func (t Table) Len() int { return len(t.regions) }

// Regions returns a copy of the rows in table order.
func (t Table) Regions() []Region {
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Names returns the region names in table order.
func (t Table) Names() []string {
	out := make([]string, len(t.regions))
	for i, r := range t.regions {
		out[i] = r.Name
	}
	return out
}

// Population looks up one region.
func (t Table) Population(name string) (int64, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.regions[i].Population, true
}

// Has reports whether the table contains name.
func (t Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Total returns the sum of all populations.
func (t Table) Total() int64 {
	var sum int64
	for _, r := range t.regions {
		sum += r.Population
	}
	return sum
}

// With returns a copy of the table with one region's population replaced.
func (t Table) With(name string, population int64) (Table, error) {
	i, ok := t.index[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, name)
	}
	regions := t.Regions()
	regions[i].Population = population
	return NewTable(regions)
}

// Allocation maps region name to seats.
type Allocation map[string]int

// Total returns the number of seats allocated.
func (a Allocation) Total() int {
	sum := 0
	for _, n := range a {
		sum += n
	}
	return sum
}

// Clone returns an independent copy.
func (a Allocation) Clone() Allocation {
	return maps.Clone(a)
}

// Names returns the region names sorted alphabetically.
func (a Allocation) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks the allocation against a seat total: every region at
// least one seat, seats summing to totalSeats.
func (a Allocation) Validate(totalSeats int) error {
	if len(a) == 0 {
		return fmt.Errorf("%w: empty allocation", ErrInvalidInput)
	}
	for _, name := range a.Names() {
		if a[name] < 1 {
			return fmt.Errorf("%w: region %q has %d seats", ErrInvalidInput, name, a[name])
		}
	}
	if got := a.Total(); got != totalSeats {
		return fmt.Errorf("%w: allocation sums to %d seats, want %d", ErrInvalidInput, got, totalSeats)
	}
	return nil
}
