package ports

import (
	"context"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
)

// DirectoryRepository loads and saves whole collections.
type DirectoryRepository interface {
	Departments(ctx context.Context) ([]domain.Department, error)
	SaveDepartments(ctx context.Context, departments []domain.Department) error
	Members(ctx context.Context, kind domain.MemberKind) ([]domain.Member, error)
	SaveMembers(ctx context.Context, kind domain.MemberKind, members []domain.Member) error
	Keys() Keys
}
