package common

// Stable reason codes of a FAILED task
const (
	ReasonRestorationTimeout = "RestorationTimeout"
	ReasonChecksumMismatch   = "ChecksumMismatch"
	ReasonSizeMismatch       = "SizeMismatch"
	ReasonProductNotFound    = "ProductNotFound"
	ReasonTooManyRetries     = "TooManyRetries"
	ReasonCanceled           = "Canceled"
	ReasonAuthFailed         = "AuthFailed"
	ReasonFatal              = "Fatal"
)

// TaskResult is the terminal outcome of one download task
type TaskResult struct {
	ProductID string `json:"productId"`
	State     State  `json:"state"`
	Attempts  int    `json:"attempts"`
	Reason    string `json:"reason,omitempty"` // stable failure code, empty on success
	Message   string `json:"message,omitempty"`
}

// BatchResult aggregates the task outcomes of one download batch, keyed by product id.
// Completion order is unordered with respect to submission order.
type BatchResult struct {
	BatchID   string                `json:"batchId"`
	Tasks     map[string]TaskResult `json:"tasks"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
}

// NewBatchResult creates an empty result for the batch
func NewBatchResult(batchID string) *BatchResult {
	return &BatchResult{BatchID: batchID, Tasks: map[string]TaskResult{}}
}

// Add records a task outcome
func (r *BatchResult) Add(task TaskResult) {
	if r.Tasks == nil {
		r.Tasks = map[string]TaskResult{}
	}
	r.Tasks[task.ProductID] = task
	switch task.State {
	case StateCOMPLETE:
		r.Completed++
	case StateFAILED:
		r.Failed++
	}
}

// AllComplete returns whether every task of the batch succeeded
func (r BatchResult) AllComplete() bool {
	return r.Failed == 0 && r.Completed == len(r.Tasks)
}
