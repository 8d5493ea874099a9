package importjob

import "github.com/iota-uz/bookkeeper/modules/imports/domain/entities/importitem"

// AggregateStatus derives the post-Process status from the item status distribution.
// Duplicates are checked before errors: a file made only of duplicates and errors completes.
func AggregateStatus(counts importitem.StatusCounts) Status {
	if counts.Total() == 0 {
		return StatusComplete
	}
	if counts[importitem.StatusProcessed] == 0 {
		if counts[importitem.StatusDuplicate] > 0 {
			return StatusComplete
		}
		if counts[importitem.StatusError] > 0 {
			return StatusError
		}
	}
	return StatusProcessed
}
