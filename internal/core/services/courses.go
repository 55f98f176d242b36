package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

func (s *DirectoryService) AddCourse(ctx context.Context, departmentID string, course domain.Course) ([]domain.Department, error) {
	return s.editCourses(ctx, "add_course", departmentID, func(courses []domain.Course) ([]domain.Course, error) {
		c, err := normalizeCourse(course)
		if err != nil {
			return nil, err
		}
		if findCourse(courses, c.Code) >= 0 {
			return nil, domain.NewValidationError("code", domain.ErrDuplicateCourse)
		}
		return append(courses, c), nil
	})
}

// UpdateCourse replaces the course identified by code. The new code may
// differ from the old one but must stay unique within the department.
func (s *DirectoryService) UpdateCourse(ctx context.Context, departmentID, code string, course domain.Course) ([]domain.Department, error) {
	return s.editCourses(ctx, "update_course", departmentID, func(courses []domain.Course) ([]domain.Course, error) {
		idx := findCourse(courses, code)
		if idx < 0 {
			return nil, domain.ErrCourseNotFound
		}
		c, err := normalizeCourse(course)
		if err != nil {
			return nil, err
		}
		if other := findCourse(courses, c.Code); other >= 0 && other != idx {
			return nil, domain.NewValidationError("code", domain.ErrDuplicateCourse)
		}
		courses[idx] = c
		return courses, nil
	})
}

func (s *DirectoryService) RemoveCourse(ctx context.Context, departmentID, code string) ([]domain.Department, error) {
	return s.editCourses(ctx, "remove_course", departmentID, func(courses []domain.Course) ([]domain.Course, error) {
		idx := findCourse(courses, code)
		if idx < 0 {
			return nil, domain.ErrCourseNotFound
		}
		return append(courses[:idx], courses[idx+1:]...), nil
	})
}

// editCourses applies edit to a copy of the department's course list and
// saves the department collection.
func (s *DirectoryService) editCourses(
	ctx context.Context,
	op, departmentID string,
	edit func([]domain.Course) ([]domain.Course, error),
) ([]domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	idx := findDepartment(depts, departmentID)
	if idx < 0 {
		s.metrics.ObserveOperation(op, ports.OutcomeNotFound)
		return nil, domain.ErrDepartmentNotFound
	}

	next := cloneDepartments(depts)
	courses, err := edit(next[idx].Courses)
	if err != nil {
		s.metrics.ObserveOperation(op, ports.OutcomeRejected)
		return nil, err
	}
	next[idx].Courses = courses

	if err := s.repo.SaveDepartments(ctx, next); err != nil {
		return nil, s.fail(op, err)
	}
	s.logger.Debug("department courses changed",
		zap.String("department", next[idx].ID),
		zap.Int("courses", len(courses)),
	)
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return next, nil
}

func normalizeCourse(c domain.Course) (domain.Course, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Code = strings.TrimSpace(c.Code)
	c.Section = strings.TrimSpace(c.Section)
	if c.Name == "" {
		return c, domain.NewValidationError("name", domain.ErrNameRequired)
	}
	if c.Code == "" {
		return c, domain.NewValidationError("code", domain.ErrCourseCodeRequired)
	}
	return c, nil
}

func findCourse(courses []domain.Course, code string) int {
	key := domain.NormalizeKey(code)
	if key == "" {
		return -1
	}
	for i, c := range courses {
		if domain.NormalizeKey(c.Code) == key {
			return i
		}
	}
	return -1
}
