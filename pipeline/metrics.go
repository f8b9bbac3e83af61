package pipeline

import "time"

// Metrics is the explicit accumulator threaded through pipeline stages.
// Each stage records its own map; nothing mutates another stage's entry, so
// a failed run still carries the measurements of every stage it reached.
type Metrics struct {
	stages  map[string]map[string]any
	started time.Time
}

func newMetrics(started time.Time) *Metrics {
	return &Metrics{
		stages:  make(map[string]map[string]any, 8),
		started: started,
	}
}

func (m *Metrics) record(stage string, values map[string]any) {
	m.stages[stage] = values
}

func (m *Metrics) finish(now time.Time) {
	m.stages["overall"] = map[string]any{
		"duration_ms": now.Sub(m.started).Milliseconds(),
	}
}

// Stage returns the recorded values for one stage, or nil if it never ran.
func (m Metrics) Stage(name string) map[string]any {
	return m.stages[name]
}

// Stages lists the stages that recorded metrics.
func (m Metrics) Stages() []string {
	names := make([]string, 0, len(m.stages))
	for name := range m.stages {
		names = append(names, name)
	}
	return names
}
