package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kyleking/rockset-org-metadata/internal/rockset"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Catalog records export runs for later SQL inspection
type Catalog interface {
	Initialize(ctx context.Context) error
	BeginRun(ctx context.Context, apiServer string) (string, error)
	FinishRun(ctx context.Context, runID string, runErr error) error
	StoreDocument(ctx context.Context, runID, endpoint string, doc json.RawMessage) error
	StoreCollection(ctx context.Context, runID, workspace, name string, fields []rockset.Field) error
	Stats(ctx context.Context, runID string) (*RunStats, error)
	Close() error
}

// RunStats summarizes one export run as stored in the catalog
type RunStats struct {
	RunID       string     `json:"run_id"`
	APIServer   string     `json:"api_server"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	Documents   int      `json:"documents"`
	Records     int      `json:"records"`
	Collections int      `json:"collections"`
	Fields      int      `json:"fields"`
	Endpoints   []string `json:"endpoints"`
}
