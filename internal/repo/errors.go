package repo

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers use it to
// tell a genuine miss apart from a storage failure: only a miss feeds the
// failed-attempt and lockout bookkeeping.
var ErrNotFound = errors.New("not found")
