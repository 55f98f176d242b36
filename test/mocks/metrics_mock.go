package mocks

import (
	"sync"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// MockMetrics records what the service reports.
type MockMetrics struct {
	mu sync.Mutex

	Operations    map[string]int
	MembersByKind map[domain.MemberKind]int
	Synthesized   int
}

var _ ports.DirectoryMetrics = (*MockMetrics)(nil)

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Operations:    make(map[string]int),
		MembersByKind: make(map[domain.MemberKind]int),
	}
}

func (m *MockMetrics) ObserveOperation(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Operations[operation+"/"+outcome]++
}

func (m *MockMetrics) MembersUpdated(kind domain.MemberKind, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MembersByKind[kind] += n
}

func (m *MockMetrics) DepartmentsSynthesized(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Synthesized += n
}

// Count returns how often operation finished with outcome.
func (m *MockMetrics) Count(operation, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Operations[operation+"/"+outcome]
}
