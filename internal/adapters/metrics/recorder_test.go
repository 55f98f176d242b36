package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/metrics"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

func TestRecorder_Operations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.ObserveOperation("archive_department", ports.OutcomeOK)
	rec.ObserveOperation("archive_department", ports.OutcomeOK)
	rec.ObserveOperation("archive_department", ports.OutcomeNotFound)

	expected := `
# HELP directory_operations_total Directory operations by name and outcome.
# TYPE directory_operations_total counter
directory_operations_total{operation="archive_department",outcome="not_found"} 1
directory_operations_total{operation="archive_department",outcome="ok"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "directory_operations_total"))
}

func TestRecorder_IgnoresNonPositiveCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.MembersUpdated(domain.KindStudent, 3)
	rec.MembersUpdated(domain.KindFaculty, 0)
	rec.DepartmentsSynthesized(2)
	rec.DepartmentsSynthesized(-1)

	count, err := testutil.GatherAndCount(reg, "directory_members_updated_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "zero updates do not create a series")

	expected := `
# HELP directory_departments_synthesized_total Departments created by recovery from free-text member departments.
# TYPE directory_departments_synthesized_total counter
directory_departments_synthesized_total 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "directory_departments_synthesized_total"))
}
