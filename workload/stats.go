package workload

import "github.com/puzpuzpuz/xsync/v3"

// Stats accumulates per-operation counters across workers. The counters
// are striped, so workers bump them without contending on a cache line;
// only the driver reads them, after all workers have joined.
type Stats struct {
	ContainsHits      *xsync.Counter
	ContainsMisses    *xsync.Counter
	SuccessfulAdds    *xsync.Counter
	FailedAdds        *xsync.Counter
	SuccessfulRemoves *xsync.Counter
	FailedRemoves     *xsync.Counter
}

func NewStats() *Stats {
	return &Stats{
		ContainsHits:      xsync.NewCounter(),
		ContainsMisses:    xsync.NewCounter(),
		SuccessfulAdds:    xsync.NewCounter(),
		FailedAdds:        xsync.NewCounter(),
		SuccessfulRemoves: xsync.NewCounter(),
		FailedRemoves:     xsync.NewCounter(),
	}
}

// Snapshot freezes the counters into plain integers for reporting.
type Snapshot struct {
	ContainsHits      int64
	ContainsMisses    int64
	SuccessfulAdds    int64
	FailedAdds        int64
	SuccessfulRemoves int64
	FailedRemoves     int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ContainsHits:      s.ContainsHits.Value(),
		ContainsMisses:    s.ContainsMisses.Value(),
		SuccessfulAdds:    s.SuccessfulAdds.Value(),
		FailedAdds:        s.FailedAdds.Value(),
		SuccessfulRemoves: s.SuccessfulRemoves.Value(),
		FailedRemoves:     s.FailedRemoves.Value(),
	}
}

func (s Snapshot) Ops() int64 {
	return s.ContainsHits + s.ContainsMisses +
		s.SuccessfulAdds + s.FailedAdds +
		s.SuccessfulRemoves + s.FailedRemoves
}
