// Package popfile reads population tables from delimited text.
package popfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alexshd/apportion"
)

// Comment marks a skipped line.
const Comment = '#'

// Read parses "name,population" rows. Lines starting with '#' are skipped
// and columns after the second are ignored. Region order is file order.
func Read(r io.Reader) (apportion.Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = Comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var regions []apportion.Region
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return apportion.Table{}, fmt.Errorf("%w: %v", apportion.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)

		if len(rec) < 2 {
			return apportion.Table{}, fmt.Errorf("%w: line %d: want name,population, got %d field(s)",
				apportion.ErrInvalidInput, line, len(rec))
		}
		name := strings.TrimSpace(rec[0])
		pop, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return apportion.Table{}, fmt.Errorf("%w: line %d: population %q is not an integer",
				apportion.ErrInvalidInput, line, rec[1])
		}
		if pop < 0 {
			return apportion.Table{}, fmt.Errorf("%w: line %d: negative population %d",
				apportion.ErrInvalidInput, line, pop)
		}
		regions = append(regions, apportion.Region{Name: name, Population: pop})
	}

	t, err := apportion.NewTable(regions)
	if err != nil {
		return apportion.Table{}, err
	}
	return t, nil
}

// Load reads a population table from path.
func Load(path string) (apportion.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return apportion.Table{}, err
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return apportion.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
