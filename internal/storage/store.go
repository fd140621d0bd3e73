package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"toksim/internal/config"
	"toksim/internal/sim"
)

// Store persists runs under a base directory, one sub-directory per run
// holding metadata.json and history.csv.
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
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	GeometryType string  `json:"geometry"`
	Nr           int     `json:"nr"`
	Transport    string  `json:"transport"`
	Solver       string  `json:"solver"`
	Theta        float64 `json:"theta"`
	TFinal       float64 `json:"t_final"`

	Steps   int                `json:"steps"`
	Retries int                `json:"retries"`
	Metrics map[string]float64 `json:"metrics"`
}

// Save writes one finished run and returns its generated ID.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", cfg.Geometry.Type, cfg.Solver.Type, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Timestamp:    time.Now(),
		GeometryType: cfg.Geometry.Type,
		Nr:           cfg.Geometry.Nr,
		Transport:    cfg.Transport.Model,
		Solver:       cfg.Solver.Type,
		Theta:        cfg.Solver.Theta,
		TFinal:       cfg.TimeStep.TFinal,
		Steps:        len(result.Steps),
		Retries:      result.Retries,
		Metrics:      result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := WriteHistoryCSV(filepath.Join(runDir, "history.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteHistoryCSV lays the profile history out one state per row: time and
// dt first, then every cell of each profile.
func WriteHistoryCSV(path string, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if len(result.States) == 0 {
		return nil
	}
	n := len(result.States[0].TiCell)

	header := []string{"time", "dt"}
	for _, name := range []string{"ti", "te", "ne", "psi"} {
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("%s_%02d", name, i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, st := range result.States {
		dt := 0.0
		if i > 0 {
			dt = result.Steps[i-1].Dt
		}
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.FormatFloat(st.Time, 'g', 12, 64),
			strconv.FormatFloat(dt, 'g', 12, 64))
		for _, profile := range [][]float64{st.TiCell, st.TeCell, st.NeCell, st.PsiCell} {
			for _, v := range profile {
				row = append(row, strconv.FormatFloat(v, 'g', 12, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns metadata for every stored run, skipping unreadable entries.
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
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// History is a loaded run history in column-addressable form.
type History struct {
	Header []string
	Rows   [][]float64
}

// Column extracts one named column over all rows.
func (h *History) Column(name string) ([]float64, bool) {
	for j, col := range h.Header {
		if col != name {
			continue
		}
		out := make([]float64, len(h.Rows))
		for i, row := range h.Rows {
			out[i] = row[j]
		}
		return out, true
	}
	return nil, false
}

// Profile extracts one profile (all cells of a named quantity) from a row.
func (h *History) Profile(name string, row int) []float64 {
	prefix := name + "_"
	var out []float64
	for j, col := range h.Header {
		if len(col) > len(prefix) && col[:len(prefix)] == prefix {
			out = append(out, h.Rows[row][j])
		}
	}
	return out
}

func (s *Store) LoadHistory(runID string) (*History, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &History{}, nil
	}

	h := &History{Header: records[0]}
	for _, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad value %q in %s: %w", field, runID, err)
			}
			row[j] = v
		}
		h.Rows = append(h.Rows, row)
	}
	return h, nil
}
