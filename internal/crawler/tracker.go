package crawler

// Tracker receives progress updates during a crawl. The engine calls
// Increment once per listing that produced a record; implementations
// must be safe for concurrent use.
type Tracker interface {
	Increment(n int64)
}

// NopTracker is a Tracker that discards all updates.
type NopTracker struct{}

// Increment implements Tracker and does nothing.
func (NopTracker) Increment(n int64) {}
