package ports

import (
	"context"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
)

type DirectoryService interface {
	Departments(ctx context.Context) ([]domain.Department, error)
	CreateDepartment(ctx context.Context, in domain.DepartmentInput) ([]domain.Department, error)
	UpdateDepartment(ctx context.Context, id string, patch domain.DepartmentPatch) ([]domain.Department, error)
	ArchiveDepartment(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error)
	RestoreDepartment(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error)
	DeleteDepartmentPermanently(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error)
	RunRecovery(ctx context.Context) (domain.RecoveryReport, error)
	ResolveMemberDepartments(ctx context.Context) (domain.ResolutionReport, error)
	LoadRoster(ctx context.Context, kind domain.MemberKind) (domain.Roster, error)

	AddCourse(ctx context.Context, departmentID string, course domain.Course) ([]domain.Department, error)
	UpdateCourse(ctx context.Context, departmentID, code string, course domain.Course) ([]domain.Department, error)
	RemoveCourse(ctx context.Context, departmentID, code string) ([]domain.Department, error)

	SaveMember(ctx context.Context, kind domain.MemberKind, member domain.Member) (domain.Member, error)
	RemoveMember(ctx context.Context, kind domain.MemberKind, id string) error
}

// DirectoryReader serves the last loaded snapshot of the directory.
type DirectoryReader interface {
	Departments() []domain.Department
	Members(kind domain.MemberKind) []domain.Member
}
