package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// DemoFaculty is the record a fresh portal starts with. Its department is
// free text, so the first faculty roster load creates the department.
func DemoFaculty() domain.Member {
	return domain.Member{
		ID:         "f1",
		Name:       "Dr. Aisha Khan",
		Department: "Computer Science",
		Status:     domain.StatusActive,
		Attributes: map[string]json.RawMessage{
			"employeeId": json.RawMessage(`"T2025-09"`),
		},
	}
}

// SeedDemo writes the demo faculty member when the whole directory is empty.
// It reports whether anything was written.
func SeedDemo(ctx context.Context, repo ports.DirectoryRepository, logger *zap.Logger) (bool, error) {
	depts, err := repo.Departments(ctx)
	if err != nil {
		return false, err
	}
	if len(depts) > 0 {
		return false, nil
	}
	for _, kind := range domain.MemberKinds {
		members, err := repo.Members(ctx, kind)
		if err != nil {
			return false, err
		}
		if len(members) > 0 {
			return false, nil
		}
	}

	if err := repo.SaveMembers(ctx, domain.KindFaculty, []domain.Member{DemoFaculty()}); err != nil {
		return false, err
	}
	logger.Info("seeded demo directory data")
	return true, nil
}
