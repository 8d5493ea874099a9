package importjob

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Checkpoint tracks progress of the post-import filter workflow. It is stored as one JSON
// document so that a crashed or timed-out run can resume where it stopped.
type Checkpoint struct {
	Count       int         `json:"count"`
	Complete    int         `json:"complete"`
	IDs         []uuid.UUID `json:"ids"`
	CompleteIDs []uuid.UUID `json:"completeIds"`
	StartTime   time.Time   `json:"startTime"`
}

func NewCheckpoint(filterIDs []uuid.UUID, start time.Time) *Checkpoint {
	ids := slices.Clone(filterIDs)
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &Checkpoint{
		Count:       len(ids),
		IDs:         ids,
		CompleteIDs: []uuid.UUID{},
		StartTime:   start,
	}
}

// Next returns the next pending filter id.
func (c *Checkpoint) Next() (uuid.UUID, bool) {
	if c == nil || len(c.IDs) == 0 {
		return uuid.Nil, false
	}
	return c.IDs[0], true
}

func (c *Checkpoint) Done() bool {
	return c == nil || len(c.IDs) == 0
}

// Advance returns a copy with id moved from the pending to the completed list.
func (c *Checkpoint) Advance(id uuid.UUID) *Checkpoint {
	out := &Checkpoint{
		Count:       c.Count,
		Complete:    c.Complete,
		IDs:         make([]uuid.UUID, 0, len(c.IDs)),
		CompleteIDs: slices.Clone(c.CompleteIDs),
		StartTime:   c.StartTime,
	}
	if out.CompleteIDs == nil {
		out.CompleteIDs = []uuid.UUID{}
	}
	moved := false
	for _, v := range c.IDs {
		if v == id && !moved {
			moved = true
			continue
		}
		out.IDs = append(out.IDs, v)
	}
	if moved {
		out.Complete++
		out.CompleteIDs = append(out.CompleteIDs, id)
	}
	return out
}
