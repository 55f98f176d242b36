package ports

import "github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"

// Operation outcomes reported to DirectoryMetrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type DirectoryMetrics interface {
	ObserveOperation(operation, outcome string)
	MembersUpdated(kind domain.MemberKind, n int)
	DepartmentsSynthesized(n int)
}
