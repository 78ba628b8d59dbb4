package ports

import "time"

// Clock supplies the current instant. Every time-dependent component takes one
// at construction instead of calling time.Now directly.
type Clock interface {
	Now() time.Time
}
