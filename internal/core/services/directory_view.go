package services

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// DirectoryView is a read cache of the three collections. It reloads a
// collection whenever a change notification for its key arrives, whether
// the write came from this process or from another session.
type DirectoryView struct {
	repo     ports.DirectoryRepository
	notifier ports.ChangeNotifier
	logger   *zap.Logger

	mu          sync.RWMutex
	departments []domain.Department
	members     map[domain.MemberKind][]domain.Member

	reloads atomic.Uint64
	ready   chan struct{}
	once    sync.Once
}

var _ ports.DirectoryReader = (*DirectoryView)(nil)

func NewDirectoryView(repo ports.DirectoryRepository, notifier ports.ChangeNotifier, logger *zap.Logger) *DirectoryView {
	return &DirectoryView{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		members:  make(map[domain.MemberKind][]domain.Member, len(domain.MemberKinds)),
		ready:    make(chan struct{}),
	}
}

// Run subscribes, loads everything once and then applies notifications until
// ctx is done. Ready is closed after the first load.
func (v *DirectoryView) Run(ctx context.Context) error {
	events := v.notifier.Subscribe(ctx)

	if err := v.Load(ctx); err != nil {
		return err
	}
	v.once.Do(func() { close(v.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if err := v.apply(ctx, evt); err != nil {
				v.logger.Error("directory view reload failed",
					zap.String("key", evt.Key),
					zap.String("event", evt.Name),
					zap.Error(err),
				)
			}
		}
	}
}

// Ready is closed once the view has loaded and is subscribed.
func (v *DirectoryView) Ready() <-chan struct{} {
	return v.ready
}

// Load reads all collections from the repository.
func (v *DirectoryView) Load(ctx context.Context) error {
	if err := v.reloadDepartments(ctx); err != nil {
		return err
	}
	for _, kind := range domain.MemberKinds {
		if err := v.reloadMembers(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

// Reloads counts completed collection reloads.
func (v *DirectoryView) Reloads() uint64 {
	return v.reloads.Load()
}

func (v *DirectoryView) Departments() []domain.Department {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.Department, len(v.departments))
	for i, d := range v.departments {
		out[i] = d.Clone()
	}
	return out
}

func (v *DirectoryView) Members(kind domain.MemberKind) []domain.Member {
	v.mu.RLock()
	defer v.mu.RUnlock()

	src := v.members[kind]
	out := make([]domain.Member, len(src))
	for i, m := range src {
		out[i] = m.Clone()
	}
	return out
}

func (v *DirectoryView) apply(ctx context.Context, evt ports.ChangeEvent) error {
	if evt.Name == ports.EventResync {
		return v.Load(ctx)
	}
	keys := v.repo.Keys()
	switch evt.Key {
	case keys.Departments:
		return v.reloadDepartments(ctx)
	case keys.Students:
		return v.reloadMembers(ctx, domain.KindStudent)
	case keys.Faculty:
		return v.reloadMembers(ctx, domain.KindFaculty)
	}
	return nil
}

func (v *DirectoryView) reloadDepartments(ctx context.Context) error {
	depts, err := v.repo.Departments(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.departments = depts
	v.mu.Unlock()
	v.reloads.Add(1)
	return nil
}

func (v *DirectoryView) reloadMembers(ctx context.Context, kind domain.MemberKind) error {
	members, err := v.repo.Members(ctx, kind)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.members[kind] = members
	v.mu.Unlock()
	v.reloads.Add(1)
	return nil
}
