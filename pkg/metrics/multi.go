package metrics

type MultiObserver struct {
	observers []Observer
}

func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

func (m *MultiObserver) RecordEvent(ev MetricsEvent) {
	for _, o := range m.observers {
		o.RecordEvent(ev)
	}
}
