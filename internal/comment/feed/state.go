package feed

import (
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the synchronizer. Page slices are shared
// with the synchronizer and must not be modified.
type Snapshot struct {
	Key   model.PageKey
	State State
	// Page is the last page fetched for Key; empty until the first fetch
	// for Key completes.
	Page model.Page
	// Tick counts poll timer firings since Key became live.
	Tick uint64
	// Stale is set when the last probe reported new data.
	Stale      bool
	Refreshes  uint64
	Generation uint64
	// Err is the last fetch error for Key. The state stays Loading.
	Err error
}
