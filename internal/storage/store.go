package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// Store persists recorded runs under a base directory, one subdirectory
// per run holding metadata.json and states.csv.
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
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Tolerance float64            `json:"tolerance"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Frames    int                `json:"frames"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes one run. times and states must have equal length; states
// rows are flat (q, v) vectors.
func (s *Store) Save(meta RunMetadata, times []float64, states [][]float64) (string, error) {
	if len(times) != len(states) {
		return "", fmt.Errorf("storage: %d timestamps for %d states", len(times), len(states))
	}
	runID := fmt.Sprintf("%s_%d", meta.Scene, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Frames = len(times)

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), metaData, 0644); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i, t := range times {
		row := make([]string, 0, len(states[i])+1)
		row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range states[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns metadata for all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

// Load reads one run back: timestamps and flat state rows.
func (s *Store) Load(runID string) (RunMetadata, []float64, [][]float64, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, nil, nil, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return meta, nil, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return meta, nil, nil, err
	}

	times := make([]float64, len(rows))
	states := make([][]float64, len(rows))
	for i, row := range rows {
		times[i], err = strconv.ParseFloat(row[0], 64)
		if err != nil {
			return meta, nil, nil, fmt.Errorf("storage: bad timestamp in %s row %d: %w", runID, i, err)
		}
		states[i] = make([]float64, len(row)-1)
		for j, v := range row[1:] {
			states[i][j], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return meta, nil, nil, fmt.Errorf("storage: bad value in %s row %d: %w", runID, i, err)
			}
		}
	}
	return meta, times, states, nil
}
