package interfaces

// Metrics receives counters and gauges from the kitchen loop.
type Metrics interface {
	PullCompleted(ok bool, orders int)
	PushReceived(kind string)
	OrphanPatch()
	TransitionCompleted(target string, ok bool)
	ArrivalNotified(count int)
	BoardChanged(active int, stale bool)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) PullCompleted(bool, int)          {}
func (NopMetrics) PushReceived(string)              {}
func (NopMetrics) OrphanPatch()                     {}
func (NopMetrics) TransitionCompleted(string, bool) {}
func (NopMetrics) ArrivalNotified(int)              {}
func (NopMetrics) BoardChanged(int, bool)           {}
