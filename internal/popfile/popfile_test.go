package popfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexshd/apportion"
)

func TestRead(t *testing.T) {
	in := `# state,population
Ohio,11568495
  Iowa, 3053787
# territories are left out
Utah,2770765,extra,columns
`
	table, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	want := []apportion.Region{
		{Name: "Ohio", Population: 11568495},
		{Name: "Iowa", Population: 3053787},
		{Name: "Utah", Population: 2770765},
	}
	if diff := cmp.Diff(want, table.Regions()); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line string
	}{
		{"one column", "Ohio,1\nIowa\n", "line 2"},
		{"not a number", "Ohio,lots\n", "line 1"},
		{"negative", "Ohio,1\nIowa,-4\n", "line 2"},
		{"duplicate", "Ohio,1\nOhio,2\n", ""},
		{"empty", "# nothing\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			if !errors.Is(err, apportion.ErrInvalidInput) {
				t.Fatalf("Expected ErrInvalidInput, got %v", err)
			}
			if tt.line != "" && !strings.Contains(err.Error(), tt.line) {
				t.Errorf("Expected %q in %q", tt.line, err.Error())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	if err := os.WriteFile(path, []byte("A,10\nB,20\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Total() != 30 {
		t.Errorf("Total = %d, want 30", table.Total())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}
