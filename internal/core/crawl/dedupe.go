package crawl

// Tracker is the per-session seen-id set. It grows monotonically and is
// discarded with the crawl; the single-threaded crawl loop makes
// check-and-insert atomic without locking.
type Tracker struct {
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Observe returns true the first time an id is seen, false thereafter.
func (t *Tracker) Observe(id string) bool {
	if _, dup := t.seen[id]; dup {
		return false
	}
	t.seen[id] = struct{}{}
	return true
}

func (t *Tracker) Len() int { return len(t.seen) }
