package persistence

import "time"

type timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}
