package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/multinet"
)

const (
	metadataFile   = "metadata.json"
	iterationsFile = "iterations.csv"
	snapshotFile   = "networks.json"
)

// Store keeps one directory per coupled run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string         `json:"id"`
	Scenario    string         `json:"scenario"`
	Timestamp   time.Time      `json:"timestamp"`
	State       string         `json:"state"`
	Level       string         `json:"level"`
	Iterations  map[string]int `json:"iterations"`
	InitialRuns int            `json:"initial_runs"`
	Solves      int            `json:"solves"`
	DurationMS  float64        `json:"duration_ms"`
	Error       string         `json:"error,omitempty"`
	Networks    []string       `json:"networks"`
	Controllers int            `json:"controllers"`
}

// TotalIterations sums the per-level iteration counts.
func (m RunMetadata) TotalIterations() int {
	n := 0
	for _, it := range m.Iterations {
		n += it
	}
	return n
}

// IterationRow is one line of iterations.csv.
type IterationRow struct {
	Level     string
	Iteration int
	Converged bool
	Residual  float64
	Solved    []string
	Unstable  []string
}

// Save writes the run's metadata, iteration history and a snapshot of every
// network, and returns the generated run ID.
func (s *Store) Save(scenario string, mn *multinet.MultiNetwork, res *coupling.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    scenario,
		Timestamp:   time.Now(),
		State:       res.State.String(),
		Level:       res.Level.String(),
		Iterations:  res.Iterations,
		InitialRuns: res.InitialRuns,
		Solves:      res.Solves,
		DurationMS:  float64(res.Duration) / float64(time.Millisecond),
		Networks:    mn.Names(),
		Controllers: mn.Controllers.Len(),
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeIterations(filepath.Join(runDir, iterationsFile), res.History); err != nil {
		return "", err
	}
	if err := ExportJSON(filepath.Join(runDir, snapshotFile), mn, res); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeIterations(path string, history []coupling.IterationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"level", "iteration", "converged", "residual", "solved", "unstable"}); err != nil {
		return err
	}
	for _, rec := range history {
		row := []string{
			rec.Level.String(),
			strconv.Itoa(rec.Iteration),
			strconv.FormatBool(rec.Converged),
			strconv.FormatFloat(rec.Residual, 'g', -1, 64),
			strings.Join(rec.Solved, ";"),
			strings.Join(rec.Unstable, ";"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadIterations(runID string) ([]IterationRow, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, iterationsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []IterationRow{}, nil
	}

	rows := make([]IterationRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 6 {
			return nil, fmt.Errorf("%s line %d: expected 6 fields, got %d", iterationsFile, i+2, len(rec))
		}
		iter, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", iterationsFile, i+2, err)
		}
		conv, err := strconv.ParseBool(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", iterationsFile, i+2, err)
		}
		residual, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", iterationsFile, i+2, err)
		}
		rows = append(rows, IterationRow{
			Level:     rec[0],
			Iteration: iter,
			Converged: conv,
			Residual:  residual,
			Solved:    splitList(rec[4]),
			Unstable:  splitList(rec[5]),
		})
	}
	return rows, nil
}

// LoadSnapshot reads the network snapshot written with the run.
func (s *Store) LoadSnapshot(runID string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, snapshotFile))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}
