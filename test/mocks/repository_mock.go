// Package mocks provides mock implementations of port interfaces for testing.
// Ports define the contracts between the core and its adapters, so services
// can be exercised against these in-memory versions.
package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// MockDirectoryRepository implements ports.DirectoryRepository in memory.
// Saved slices are copied so tests can compare before and after.
type MockDirectoryRepository struct {
	mu sync.RWMutex

	departments []domain.Department
	members     map[domain.MemberKind][]domain.Member
	keys        ports.Keys

	// Call tracking for verification
	SaveDepartmentsCalls int
	SaveMembersCalls     map[domain.MemberKind]int

	// Error injection for testing error scenarios
	DepartmentsError     error
	SaveDepartmentsError error
	MembersError         error
	SaveMembersError     error
}

var _ ports.DirectoryRepository = (*MockDirectoryRepository)(nil)

func NewMockDirectoryRepository() *MockDirectoryRepository {
	return &MockDirectoryRepository{
		members:          make(map[domain.MemberKind][]domain.Member),
		keys:             ports.DefaultKeys(""),
		SaveMembersCalls: make(map[domain.MemberKind]int),
	}
}

// SeedDepartments replaces the stored departments without counting a save.
func (m *MockDirectoryRepository) SeedDepartments(depts ...domain.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments = cloneDepartments(depts)
}

// SeedMembers replaces a stored collection without counting a save.
func (m *MockDirectoryRepository) SeedMembers(kind domain.MemberKind, members ...domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[kind] = cloneMembers(members)
}

func (m *MockDirectoryRepository) Keys() ports.Keys {
	return m.keys
}

func (m *MockDirectoryRepository) Departments(ctx context.Context) ([]domain.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.DepartmentsError != nil {
		return nil, m.DepartmentsError
	}
	return cloneDepartments(m.departments), nil
}

func (m *MockDirectoryRepository) SaveDepartments(ctx context.Context, depts []domain.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveDepartmentsCalls++
	if m.SaveDepartmentsError != nil {
		return m.SaveDepartmentsError
	}
	m.departments = cloneDepartments(depts)
	return nil
}

func (m *MockDirectoryRepository) Members(ctx context.Context, kind domain.MemberKind) ([]domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.MembersError != nil {
		return nil, m.MembersError
	}
	return cloneMembers(m.members[kind]), nil
}

func (m *MockDirectoryRepository) SaveMembers(ctx context.Context, kind domain.MemberKind, members []domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveMembersCalls[kind]++
	if m.SaveMembersError != nil {
		return m.SaveMembersError
	}
	m.members[kind] = cloneMembers(members)
	return nil
}

// StoredDepartments returns the current departments for assertions.
func (m *MockDirectoryRepository) StoredDepartments() []domain.Department {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneDepartments(m.departments)
}

// StoredMembers returns a collection for assertions.
func (m *MockDirectoryRepository) StoredMembers(kind domain.MemberKind) []domain.Member {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMembers(m.members[kind])
}

// TotalSaves counts every collection write.
func (m *MockDirectoryRepository) TotalSaves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.SaveDepartmentsCalls
	for _, c := range m.SaveMembersCalls {
		n += c
	}
	return n
}

func cloneDepartments(in []domain.Department) []domain.Department {
	out := make([]domain.Department, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

func cloneMembers(in []domain.Member) []domain.Member {
	out := make([]domain.Member, len(in))
	for i, mem := range in {
		out[i] = mem.Clone()
	}
	return out
}
