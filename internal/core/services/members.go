package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// SaveMember inserts or replaces a member by id. New members get an id when
// none is given and start Active. Departments are not touched; free text on
// the member is linked on the next roster load or resolution run.
func (s *DirectoryService) SaveMember(ctx context.Context, kind domain.MemberKind, member domain.Member) (domain.Member, error) {
	const op = "save_member"
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.repo.Members(ctx, kind)
	if err != nil {
		return domain.Member{}, s.fail(op, err)
	}

	m := member.Clone()
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.DepartmentID = strings.TrimSpace(m.DepartmentID)
	if m.Name == "" {
		return domain.Member{}, s.reject(op, domain.NewValidationError("name", domain.ErrNameRequired))
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	next := make([]domain.Member, 0, len(members)+1)
	replaced := false
	for _, existing := range members {
		if existing.ID == m.ID {
			if m.Status == "" {
				m.Status = existing.Status
			}
			next = append(next, m)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		if m.Status == "" {
			m.Status = domain.StatusActive
		}
		// Newest first, the order the roster screens list them in.
		next = append([]domain.Member{m}, next...)
	}

	if err := s.repo.SaveMembers(ctx, kind, next); err != nil {
		return domain.Member{}, s.fail(op, err)
	}
	s.logger.Debug("member saved",
		zap.String("kind", string(kind)),
		zap.String("id", m.ID),
		zap.Bool("created", !replaced),
	)
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return m, nil
}

func (s *DirectoryService) RemoveMember(ctx context.Context, kind domain.MemberKind, id string) error {
	const op = "remove_member"
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.repo.Members(ctx, kind)
	if err != nil {
		return s.fail(op, err)
	}

	id = strings.TrimSpace(id)
	next := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if m.ID != id {
			next = append(next, m)
		}
	}
	if len(next) == len(members) {
		s.metrics.ObserveOperation(op, ports.OutcomeNotFound)
		return domain.ErrMemberNotFound
	}

	if err := s.repo.SaveMembers(ctx, kind, next); err != nil {
		return s.fail(op, err)
	}
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return nil
}
