package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexshd/apportion"
	"github.com/alexshd/apportion/internal/config"
	"github.com/alexshd/apportion/internal/report"
	"github.com/alexshd/apportion/internal/store"
	s3store "github.com/alexshd/apportion/internal/store/s3"
)

// setup points the file store at a temp dir and writes a small population
// table, returning its path.
func setup(t *testing.T) (dir, popPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("APPORTION_STORE_DRIVER", "file")
	t.Setenv("APPORTION_STORE_ROOT", dir)
	t.Setenv("APPORTION_LOG_LEVEL", "")
	t.Setenv("NO_COLOR", "1")

	popPath = filepath.Join(dir, "pop.csv")
	data := "# region,population\nA,1000\nB,2000\nC,3000\n"
	if err := os.WriteFile(popPath, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, popPath
}

func run(t *testing.T, fn func(context.Context, []string, io.Writer, io.Writer) int, argv ...string) (int, string, string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code := fn(context.Background(), argv, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func TestRunApportion_Census2010(t *testing.T) {
	setup(t)

	code, out, stderr := run(t, RunApportion)
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.HasPrefix(out, "total population: ") {
		t.Errorf("unexpected first line:\n%s", out)
	}

	found := false
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) > 1 && f[0] == "California" {
			found = true
			if f[1] != "53" {
				t.Errorf("California seats = %s, want 53", f[1])
			}
		}
	}
	if !found {
		t.Errorf("California row missing:\n%s", out)
	}
}

func TestRunApportion_JSON(t *testing.T) {
	_, pop := setup(t)

	code, out, stderr := run(t, RunApportion, "-populations", pop, "-seats", "6", "-json")
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}

	var doc report.SeatsDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, out)
	}
	if doc.TotalSeats != 6 || doc.TotalPopulation != 6000 || len(doc.Regions) != 3 {
		t.Errorf("unexpected document: %+v", doc)
	}
	seats := map[string]int{}
	for _, r := range doc.Regions {
		seats[r.Region] = r.Seats
	}
	if diff := cmp.Diff(map[string]int{"A": 1, "B": 2, "C": 3}, seats); diff != "" {
		t.Errorf("seats mismatch (-want +got):\n%s", diff)
	}
}

// TestRunApportion_SaveCompare saves one house and compares a bigger one
// against it.
func TestRunApportion_SaveCompare(t *testing.T) {
	dir, pop := setup(t)

	code, _, stderr := run(t, RunApportion, "-populations", pop, "-seats", "6", "-save", "six.json")
	if code != 0 {
		t.Fatalf("save: exit %d, stderr:\n%s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "six.json")); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	code, out, stderr := run(t, RunApportion, "-populations", pop, "-seats", "7", "-compare", "six.json")
	if code != 0 {
		t.Fatalf("compare: exit %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(out, "compared with six.json: 1 seat(s) moved") {
		t.Errorf("missing comparison line:\n%s", out)
	}

	code, _, _ = run(t, RunApportion, "-populations", pop, "-compare", "missing.json")
	if code != exitError {
		t.Errorf("missing comparison key: exit %d, want %d", code, exitError)
	}
}

func TestRunApportion_Verbose(t *testing.T) {
	_, pop := setup(t)

	code, _, stderr := run(t, RunApportion, "-populations", pop, "-seats", "6", "-v")
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	if strings.Count(stderr, "house seat") != 3 {
		t.Errorf("expected 3 traced seats, got:\n%s", stderr)
	}
}

func TestRunApportion_ExitCodes(t *testing.T) {
	_, pop := setup(t)

	tests := []struct {
		name string
		argv []string
		code int
		out  string
	}{
		{"help", []string{"-h"}, exitOK, "Usage of apportion"},
		{"version", []string{"-version"}, exitOK, "apportion version"},
		{"bad flag", []string{"-nope"}, exitError, ""},
		{"too few seats", []string{"-populations", pop, "-seats", "2"}, exitError, ""},
		{"missing file", []string{"-populations", filepath.Join(t.TempDir(), "none.csv")}, exitError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := run(t, RunApportion, tt.argv...)
			if code != tt.code {
				t.Errorf("exit %d, want %d", code, tt.code)
			}
			if tt.out != "" && !strings.Contains(out, tt.out) {
				t.Errorf("stdout missing %q:\n%s", tt.out, out)
			}
		})
	}
}

func noisyDoc(t *testing.T, argv ...string) report.ExperimentDocument {
	t.Helper()
	code, out, stderr := run(t, RunNoisy, append(argv, "-json")...)
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	var doc report.ExperimentDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, out)
	}
	return doc
}

func TestRunNoisy_JSON(t *testing.T) {
	_, pop := setup(t)

	doc := noisyDoc(t, "-populations", pop, "-seats", "12", "-epsilons", "0.0001,1000", "-trials", "30", "-seed", "5")
	if doc.Seed != 5 || doc.Trials != 30 {
		t.Errorf("seed=%d trials=%d", doc.Seed, doc.Trials)
	}
	if len(doc.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(doc.Results))
	}
	if doc.Results[1].NonZero != 0 {
		t.Errorf("ε=1000: expected no errors, got %d", doc.Results[1].NonZero)
	}
}

// TestRunNoisy_ThreadsDoNotChangeResults compares a sequential and a
// pooled run with the same seed.
func TestRunNoisy_ThreadsDoNotChangeResults(t *testing.T) {
	_, pop := setup(t)
	args := []string{"-populations", pop, "-seats", "12", "-epsilons", "0.0001,0.001,0.01", "-trials", "40", "-seed", "2010"}

	seq := noisyDoc(t, append(args, "-threads", "1")...)
	par := noisyDoc(t, append(args, "-threads", "4")...)
	if diff := cmp.Diff(seq.Results, par.Results); diff != "" {
		t.Errorf("results differ (-threads 1 +threads 4):\n%s", diff)
	}
}

func TestRunNoisy_Text(t *testing.T) {
	_, pop := setup(t)

	code, out, stderr := run(t, RunNoisy, "-populations", pop, "-epsilons", "0.5", "-trials", "3")
	if code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{"Seed: ", "Trials per epsilon: 3", "0.50000  errors: "} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr, "epsilon batch complete") {
		t.Errorf("expected batch log on stderr:\n%s", stderr)
	}
}

// TestRunNoisy_Baseline reuses an allocation saved by the apportion command.
func TestRunNoisy_Baseline(t *testing.T) {
	_, pop := setup(t)

	if code, _, stderr := run(t, RunApportion, "-populations", pop, "-seats", "9", "-save", "nine.json"); code != 0 {
		t.Fatalf("save: exit %d, stderr:\n%s", code, stderr)
	}

	doc := noisyDoc(t, "-populations", pop, "-baseline", "nine.json", "-epsilons", "1000", "-trials", "5", "-seed", "1")
	if doc.Results[0].NonZero != 0 {
		t.Errorf("negligible noise moved seats against the saved baseline: %+v", doc.Results[0])
	}

	code, _, _ := run(t, RunNoisy, "-populations", pop, "-baseline", "absent.json", "-epsilons", "1", "-trials", "1")
	if code != exitError {
		t.Errorf("missing baseline: exit %d, want %d", code, exitError)
	}
}

func TestRunNoisy_Probe(t *testing.T) {
	_, pop := setup(t)

	doc := noisyDoc(t, "-populations", pop, "-epsilons", "0.001", "-trials", "20", "-seed", "3", "-probe", "1,2,4")
	if doc.Scaling == nil {
		t.Fatal("expected a scaling document")
	}
	if len(doc.Scaling.Levels) != 3 {
		t.Errorf("Expected 3 levels, got %d", len(doc.Scaling.Levels))
	}
}

func TestRunNoisy_Cancelled(t *testing.T) {
	_, pop := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errBuf bytes.Buffer
	code := RunNoisy(ctx, []string{"-populations", pop, "-epsilons", "0.1", "-trials", "5"}, &out, &errBuf)
	if code != exitError {
		t.Errorf("exit %d, want %d", code, exitError)
	}
	if !strings.Contains(errBuf.String(), "experiment aborted") {
		t.Errorf("expected abort log:\n%s", errBuf.String())
	}
}

func TestRunNoisy_ExitCodes(t *testing.T) {
	setup(t)

	if code, out, _ := run(t, RunNoisy, "-h"); code != exitOK || !strings.Contains(out, "-epsilons") {
		t.Errorf("-h: exit %d, stdout:\n%s", code, out)
	}
	if code, out, _ := run(t, RunNoisy, "-version"); code != exitOK || !strings.Contains(out, "noisy-apportion version") {
		t.Errorf("-version: exit %d, stdout:\n%s", code, out)
	}
	if code, _, _ := run(t, RunNoisy, "-trials", "0"); code != exitError {
		t.Errorf("-trials 0: exit %d, want %d", code, exitError)
	}
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := apportion.NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatal(err)
	}
	rec.ObserveTrial(0.5, 2)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	addr, stop, err := serveMetrics("127.0.0.1:0", reg, log)
	if err != nil {
		t.Fatalf("serveMetrics failed: %v", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{`apportion_trials_total{epsilon="0.5"} 1`, `apportion_nonzero_trials_total{epsilon="0.5"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default().Store
	cfg.Driver = store.DriverMemory
	st, err := OpenStore(ctx, cfg)
	if err != nil || st.Driver() != store.DriverMemory {
		t.Fatalf("memory: %v %v", st, err)
	}

	cfg = config.Default().Store
	cfg.Driver = store.DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	st, err = OpenStore(ctx, cfg)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = st.Close() }()
	if st.Driver() != store.DriverSQLite {
		t.Errorf("driver = %s", st.Driver())
	}

	cfg.Driver = "redis"
	if _, err := OpenStore(ctx, cfg); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestS3Config(t *testing.T) {
	got := s3Config(config.S3{
		Bucket:    "houses",
		Region:    "eu-west-1",
		Endpoint:  "http://minio:9000",
		PathStyle: true,
		Prefix:    "runs/",
	})
	want := s3store.Config{
		Bucket:    "houses",
		Region:    "eu-west-1",
		Endpoint:  "http://minio:9000",
		PathStyle: true,
		Prefix:    "runs/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("s3 config mismatch (-want +got):\n%s", diff)
	}
}
