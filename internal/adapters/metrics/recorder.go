// Package metrics exposes directory activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

const namespace = "directory"

type Recorder struct {
	operations  *prometheus.CounterVec
	members     *prometheus.CounterVec
	synthesized prometheus.Counter
}

var _ ports.DirectoryMetrics = (*Recorder)(nil)

// NewRecorder registers the directory metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Directory operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		members: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_updated_total",
			Help:      "Member records rewritten by status propagation or department resolution.",
		}, []string{"kind"}),
		synthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departments_synthesized_total",
			Help:      "Departments created by recovery from free-text member departments.",
		}),
	}
	reg.MustRegister(r.operations, r.members, r.synthesized)
	return r
}

func (r *Recorder) ObserveOperation(operation, outcome string) {
	r.operations.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) MembersUpdated(kind domain.MemberKind, n int) {
	if n <= 0 {
		return
	}
	r.members.WithLabelValues(string(kind)).Add(float64(n))
}

func (r *Recorder) DepartmentsSynthesized(n int) {
	if n <= 0 {
		return
	}
	r.synthesized.Add(float64(n))
}
