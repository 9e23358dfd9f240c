// Package dataset bundles the 2010 state apportionment populations.
package dataset

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/popfile"
)

//go:embed 2010.csv
var census2010 []byte

// Name identifies the bundled dataset in logs.
const Name = "2010.csv"

// StateCount is the number of regions in a states-only table.
const StateCount = 50

// Census2010 returns the bundled table, checked with CheckStates.
func Census2010() (apportion.Table, error) {
	t, err := popfile.Read(bytes.NewReader(census2010))
	if err != nil {
		return apportion.Table{}, fmt.Errorf("%s: %w", Name, err)
	}
	if err := CheckStates(t); err != nil {
		return apportion.Table{}, fmt.Errorf("%s: %w", Name, err)
	}
	return t, nil
}

// CheckStates verifies that t lists exactly the fifty states: no
// territories, no District of Columbia.
func CheckStates(t apportion.Table) error {
	if t.Len() != StateCount {
		return fmt.Errorf("%w: want %d states, got %d regions", apportion.ErrInvalidInput, StateCount, t.Len())
	}
	if !t.Has("Virginia") {
		return fmt.Errorf("%w: Virginia missing", apportion.ErrInvalidInput)
	}
	for _, name := range []string{"Puerto Rico", "District of Columbia", "Guam"} {
		if t.Has(name) {
			return fmt.Errorf("%w: %s is not a state", apportion.ErrInvalidInput, name)
		}
	}
	return nil
}
