package mocks

import (
	"time"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// CreateTestEvent creates a sample change event for the departments key.
func CreateTestEvent(id string) ports.ChangeEvent {
	keys := ports.DefaultKeys("")
	return ports.ChangeEvent{
		ID:     id,
		Name:   ports.EventDepartmentsChanged,
		Key:    keys.Departments,
		Origin: "test-origin",
		At:     time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
	}
}

// Department builds an active department whose id is its code.
func Department(code, name string) domain.Department {
	return domain.Department{
		ID:     code,
		Name:   name,
		Code:   code,
		Status: domain.StatusActive,
	}
}

// Student builds an active member linked by id.
func Student(id, name, departmentID string) domain.Member {
	return domain.Member{
		ID:           id,
		Name:         name,
		DepartmentID: departmentID,
		Status:       domain.StatusActive,
	}
}

// FreeTextMember builds a member that only names a department in free text.
func FreeTextMember(id, name, department string) domain.Member {
	return domain.Member{
		ID:         id,
		Name:       name,
		Department: department,
		Status:     domain.StatusActive,
	}
}
