package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Run and stage statuses recorded in the manifest
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunManifest records what one pipeline run did, stage by stage
type RunManifest struct {
	mu sync.RWMutex `json:"-"`

	// Identity
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// Shape of the data
	InputRows     int      `json:"input_rows"`
	InputColumns  []string `json:"input_columns"`
	OutputColumns []string `json:"output_columns,omitempty"`

	Stages []StageExecution `json:"stages"`

	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string                 `json:"stage_id"`
	StageName string                 `json:"stage_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"`
	Columns   int                    `json:"columns"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewRunManifest creates a manifest for a run over a table with the given shape
func NewRunManifest(runID string, rows int, columns []string) *RunManifest {
	now := time.Now()
	return &RunManifest{
		RunID:        runID,
		StartTime:    now,
		InputRows:    rows,
		InputColumns: append([]string(nil), columns...),
		Stages:       []StageExecution{},
		Status:       StatusPending,
		LastUpdated:  now,
	}
}

// RecordStageStart records the start of a stage execution
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = StatusRunning
	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now(),
		Status:    StatusRunning,
	})
	m.LastUpdated = time.Now()
}

// RecordStageCompletion records the completion of a stage
func (m *RunManifest) RecordStageCompletion(stageID string, columns int, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.find(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StatusCompleted
		s.Columns = columns
		s.Metadata = metadata
	}
	m.LastUpdated = time.Now()
}

// RecordStageFailure records a stage failure and marks the run failed
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.find(stageID); s != nil {
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StatusFailed
		s.Error = err.Error()
	}
	m.Status = StatusFailed
	m.EndTime = time.Now()
	m.Error = fmt.Sprintf("stage %s failed: %v", stageID, err)
	m.LastUpdated = m.EndTime
}

// Fail marks the run failed outside of any stage
func (m *RunManifest) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = StatusFailed
	m.EndTime = time.Now()
	m.Error = err.Error()
	m.LastUpdated = m.EndTime
}

// Complete marks the run completed with the final column list
func (m *RunManifest) Complete(columns []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = StatusCompleted
	m.EndTime = time.Now()
	m.OutputColumns = append([]string(nil), columns...)
	m.LastUpdated = m.EndTime
}

// IsStageCompleted checks if a stage has been completed
func (m *RunManifest) IsStageCompleted(stageID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.Stages {
		if s.StageID == stageID && s.Status == StatusCompleted {
			return true
		}
	}
	return false
}

// GetStatus returns the run status
func (m *RunManifest) GetStatus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Status
}

// StageIDs returns the recorded stage IDs in execution order
func (m *RunManifest) StageIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.Stages))
	for i, s := range m.Stages {
		ids[i] = s.StageID
	}
	return ids
}

// Stage returns a copy of the execution record of a stage
func (m *RunManifest) Stage(stageID string) (StageExecution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.Stages {
		if s.StageID == stageID {
			return s, true
		}
	}
	return StageExecution{}, false
}

// MarshalJSON encodes the manifest under its read lock
func (m *RunManifest) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type plain RunManifest
	return json.Marshal((*plain)(m))
}

// SaveToFile saves the manifest to a JSON file
func (m *RunManifest) SaveToFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

func (m *RunManifest) find(stageID string) *StageExecution {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	return nil
}
