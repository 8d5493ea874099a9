package importjob

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicImportCompleted = "imports.import.completed.v1"
	TopicImportFailed    = "imports.import.failed.v1"
)

// LifecycleEvent is the outbox payload written with an import's terminal status.
type LifecycleEvent struct {
	ImportID   uuid.UUID `json:"importId"`
	Type       Type      `json:"type"`
	Status     Status    `json:"status"`
	Imported   int       `json:"imported"`
	Failed     int       `json:"failed"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func TopicFor(status Status) string {
	if status == StatusComplete {
		return TopicImportCompleted
	}
	return TopicImportFailed
}
