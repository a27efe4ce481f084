package gateway

import "sync"

// Outcome classifies one dispatch result for observability.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeInvalid Outcome = "invalid_input"
	OutcomeFailed  Outcome = "failed"
)

// Observation captures one dispatch outcome.
type Observation struct {
	Tool       string
	CallID     string
	DurationMS int64
	Outcome    Outcome
	ErrorCode  string
}

// Observer receives dispatch-level observability events.
type Observer interface {
	ObserveDispatch(observation Observation)
}

type noopObserver struct{}

func (noopObserver) ObserveDispatch(Observation) {}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide dispatch observer. Passing nil restores
// the no-op observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func emitObservation(observation Observation) {
	observerMu.RLock()
	observer := activeObserver
	observerMu.RUnlock()
	observer.ObserveDispatch(observation)
}
