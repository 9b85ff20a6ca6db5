package store

import (
	"errors"

	"github.com/yourorg/restdoc/pkg/types"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses.
const (
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

type Store interface {
	CreateRun(source, title, version string) (*types.Run, error)
	GetRun(id string) (*types.Run, error)
	UpdateRunStatus(id, status, errMsg string) error
	FinishRun(id string, enums []types.EnumDoc) error
	ListRuns() ([]types.Run, error)
	DeleteRun(id string) error

	SaveOperations(runID string, ops []types.OperationRecord) error
	GetOperations(runID string) ([]types.OperationRecord, error)

	GetExampleCache(key string) (*types.ExampleCache, error)
	SaveExampleCache(cache *types.ExampleCache) error
	ClearExampleCache() error

	Close() error
}
