package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// DirectoryRepository stores each collection as one JSON array under its key.
type DirectoryRepository struct {
	store ports.Store
	keys  ports.Keys
}

var _ ports.DirectoryRepository = (*DirectoryRepository)(nil)

func NewDirectoryRepository(store ports.Store, keys ports.Keys) *DirectoryRepository {
	return &DirectoryRepository{store: store, keys: keys}
}

func (r *DirectoryRepository) Keys() ports.Keys {
	return r.keys
}

func (r *DirectoryRepository) Departments(ctx context.Context) ([]domain.Department, error) {
	depts := []domain.Department{}
	if err := r.load(ctx, r.keys.Departments, &depts); err != nil {
		return nil, err
	}
	return depts, nil
}

func (r *DirectoryRepository) SaveDepartments(ctx context.Context, departments []domain.Department) error {
	if departments == nil {
		departments = []domain.Department{}
	}
	return r.save(ctx, r.keys.Departments, departments)
}

func (r *DirectoryRepository) Members(ctx context.Context, kind domain.MemberKind) ([]domain.Member, error) {
	key, err := r.memberKey(kind)
	if err != nil {
		return nil, err
	}
	members := []domain.Member{}
	if err := r.load(ctx, key, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *DirectoryRepository) SaveMembers(ctx context.Context, kind domain.MemberKind, members []domain.Member) error {
	key, err := r.memberKey(kind)
	if err != nil {
		return err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return r.save(ctx, key, members)
}

func (r *DirectoryRepository) memberKey(kind domain.MemberKind) (string, error) {
	switch kind {
	case domain.KindStudent:
		return r.keys.Students, nil
	case domain.KindFaculty:
		return r.keys.Faculty, nil
	}
	return "", domain.NewValidationError("kind", domain.ErrUnknownMemberKind)
}

// load leaves dst untouched when the key has never been written.
func (r *DirectoryRepository) load(ctx context.Context, key string, dst any) error {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *DirectoryRepository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
