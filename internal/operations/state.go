package operations

import (
	"sync"
	"time"

	perrors "salespipeline/internal/errors"
	"salespipeline/internal/storage"
	"salespipeline/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
)

// OperationState is the complete state of one pipeline run.
// Steps hand their results to later steps through its data fields.
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Step states, with order holding the registration order
	Steps map[string]*StepState `json:"steps"`
	order []string

	// Data passed between steps
	Raw          *domain.RawTable      `json:"-"`
	Table        *domain.SalesTable    `json:"-"`
	Stats        *domain.RevenueStats  `json:"stats,omitempty"`
	Verification *storage.Verification `json:"verification,omitempty"`

	// Sink failures; they do not halt the run
	SinkErrors perrors.ErrorList `json:"sink_errors"`

	// Error if the run halted
	Error error `json:"error,omitempty"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage adds or replaces the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.Steps[stageID]; !exists {
		p.order = append(p.order, stageID)
	}
	p.Steps[stageID] = state
}

// OrderedStages returns the step states in registration order
func (p *OperationState) OrderedStages() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stages := make([]*StepState, 0, len(p.order))
	for _, id := range p.order {
		stages = append(stages, p.Steps[id])
	}
	return stages
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// GetFailedStages returns all failed steps in registration order
func (p *OperationState) GetFailedStages() []*StepState {
	var failed []*StepState
	for _, step := range p.OrderedStages() {
		if step.GetStatus() == StepStatusFailed {
			failed = append(failed, step)
		}
	}
	return failed
}

// HasFailures returns true if any Step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.GetFailedStages()) > 0
}
