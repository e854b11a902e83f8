package preload

import "time"

// BatchResult labels how a batch ended.
type BatchResult string

const (
	BatchCompleted BatchResult = "completed"
	BatchSkipped   BatchResult = "skipped"
	BatchAborted   BatchResult = "aborted"
)

// Metrics provides observability for preload batches. Optional.
type Metrics interface {
	// RecordBatch is called once per batch attempt. requested is the number
	// of resources handed to the coordinator.
	RecordBatch(result BatchResult, requested int, duration time.Duration)
}
