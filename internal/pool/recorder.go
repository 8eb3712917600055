package pool

import "github.com/coxlong/zap/internal/platform"

// Action names a lifecycle transition of a pooled window.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionAcquire         Action = "ACQUIRE"
	ActionReuse           Action = "REUSE"
	ActionRecycle         Action = "RECYCLE"
	ActionDestroy         Action = "DESTROY"
	ActionEvict           Action = "EVICT"
	ActionForget          Action = "FORGET"
	ActionConfigureFailed Action = "CONFIGURE-FAILED"
)

// Event is a single lifecycle transition.
type Event struct {
	Action  Action
	Window  platform.WindowID
	Details map[string]any
}

// Recorder observes pool lifecycle events. Implementations must be safe for
// concurrent use and must not call back into the pool.
type Recorder interface {
	Record(ev Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// Recorders fans events out to several recorders.
type Recorders []Recorder

func (rs Recorders) Record(ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Record(ev)
		}
	}
}
