package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

// DirectoryService keeps departments and the members that reference them
// consistent. Every operation loads whole collections, computes new ones and
// writes them back. Operations are serialised within the process; writers in
// other processes are not coordinated with and the last write wins.
type DirectoryService struct {
	repo    ports.DirectoryRepository
	metrics ports.DirectoryMetrics
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

var _ ports.DirectoryService = (*DirectoryService)(nil)

func NewDirectoryService(
	repo ports.DirectoryRepository,
	metrics ports.DirectoryMetrics,
	logger *zap.Logger,
) *DirectoryService {
	return &DirectoryService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *DirectoryService) Departments(ctx context.Context) ([]domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Departments(ctx)
}

// CreateDepartment adds an Active department. Members that already point at
// the new department, by id or by free-text name, are reactivated.
func (s *DirectoryService) CreateDepartment(ctx context.Context, in domain.DepartmentInput) ([]domain.Department, error) {
	const op = "create_department"
	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" {
		return nil, s.reject(op, domain.NewValidationError("name", domain.ErrNameRequired))
	}

	dept := domain.Department{
		ID:          departmentID(code, name, s.now),
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(in.Description),
		Status:      domain.StatusActive,
	}
	if err := checkAliases(depts, -1, dept); err != nil {
		return nil, s.reject(op, err)
	}

	next := cloneDepartments(depts)
	next = append(next, dept)
	if err := s.repo.SaveDepartments(ctx, next); err != nil {
		return nil, s.fail(op, err)
	}
	s.logger.Info("department created", zap.String("id", dept.ID), zap.String("name", dept.Name))

	if err := s.propagateStatus(ctx, dept, domain.StatusActive); err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return next, nil
}

// UpdateDepartment edits a department in place. A status change from
// anything else to Active reactivates the department's members.
func (s *DirectoryService) UpdateDepartment(ctx context.Context, id string, patch domain.DepartmentPatch) ([]domain.Department, error) {
	const op = "update_department"
	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	idx := findDepartment(depts, id)
	if idx < 0 {
		return depts, s.notFound(op, id)
	}

	before := depts[idx]
	after := before.Clone()
	if patch.Name != nil {
		after.Name = strings.TrimSpace(*patch.Name)
		if after.Name == "" {
			return nil, s.reject(op, domain.NewValidationError("name", domain.ErrNameRequired))
		}
	}
	if patch.Code != nil {
		after.Code = strings.TrimSpace(*patch.Code)
	}
	if patch.Description != nil {
		after.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, s.reject(op, domain.NewValidationError("status", domain.ErrInvalidStatus))
		}
		after.Status = *patch.Status
	}
	if err := checkAliases(depts, idx, after); err != nil {
		return nil, s.reject(op, err)
	}

	next := cloneDepartments(depts)
	next[idx] = after
	if err := s.repo.SaveDepartments(ctx, next); err != nil {
		return nil, s.fail(op, err)
	}

	if !before.IsActive() && after.IsActive() {
		if err := s.propagateStatus(ctx, after, domain.StatusActive); err != nil {
			return nil, s.fail(op, err)
		}
	}

	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return next, nil
}

// ArchiveDepartment marks a department and its members Inactive. Nothing is
// removed and member departmentIds are kept, so RestoreDepartment undoes it.
func (s *DirectoryService) ArchiveDepartment(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error) {
	return s.setDepartmentStatus(ctx, "archive_department", id, confirm, domain.ConfirmArchive, domain.StatusInactive)
}

func (s *DirectoryService) RestoreDepartment(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error) {
	return s.setDepartmentStatus(ctx, "restore_department", id, confirm, domain.ConfirmRestore, domain.StatusActive)
}

func (s *DirectoryService) setDepartmentStatus(
	ctx context.Context,
	op, id string,
	confirm, want domain.Confirmation,
	status domain.Status,
) ([]domain.Department, error) {
	if confirm != want {
		return nil, s.reject(op, domain.NewValidationError("confirm", domain.ErrConfirmationRequired))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	idx := findDepartment(depts, id)
	if idx < 0 {
		return depts, s.notFound(op, id)
	}

	next := cloneDepartments(depts)
	next[idx].Status = status
	if err := s.repo.SaveDepartments(ctx, next); err != nil {
		return nil, s.fail(op, err)
	}
	if err := s.propagateStatus(ctx, next[idx], status); err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("department status changed",
		zap.String("id", next[idx].ID),
		zap.String("status", string(status)),
	)
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return next, nil
}

// DeleteDepartmentPermanently removes the department record. Members keep
// their departmentId, which now points at nothing; they are not cleared.
func (s *DirectoryService) DeleteDepartmentPermanently(ctx context.Context, id string, confirm domain.Confirmation) ([]domain.Department, error) {
	const op = "delete_department"
	if confirm != domain.ConfirmPermanentDelete {
		return nil, s.reject(op, domain.NewValidationError("confirm", domain.ErrConfirmationRequired))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}

	key := domain.NormalizeKey(id)
	next := make([]domain.Department, 0, len(depts))
	for _, d := range depts {
		if domain.NormalizeKey(d.ID) == key {
			continue
		}
		next = append(next, d.Clone())
	}
	if len(next) == len(depts) {
		return depts, s.notFound(op, id)
	}

	if err := s.repo.SaveDepartments(ctx, next); err != nil {
		return nil, s.fail(op, err)
	}
	s.logger.Info("department deleted permanently", zap.String("id", id))
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return next, nil
}

// RunRecovery creates departments for unmatched free-text names, persists
// them, then links every member it can.
func (s *DirectoryService) RunRecovery(ctx context.Context) (domain.RecoveryReport, error) {
	const op = "run_recovery"
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.recover(ctx)
	if err != nil {
		return domain.RecoveryReport{}, s.fail(op, err)
	}
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return report, nil
}

func (s *DirectoryService) ResolveMemberDepartments(ctx context.Context) (domain.ResolutionReport, error) {
	const op = "resolve_members"
	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return domain.ResolutionReport{}, s.fail(op, err)
	}
	report, err := s.resolveAll(ctx, BuildLookup(depts))
	if err != nil {
		return domain.ResolutionReport{}, s.fail(op, err)
	}
	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return report, nil
}

// LoadRoster is what opening a roster screen does: when free-text
// department names are still unresolved it runs recovery, which also
// resolves, and otherwise it resolves the loaded collection. It returns the
// collection with the departments it references.
func (s *DirectoryService) LoadRoster(ctx context.Context, kind domain.MemberKind) (domain.Roster, error) {
	const op = "load_roster"
	s.mu.Lock()
	defer s.mu.Unlock()

	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return domain.Roster{}, s.fail(op, err)
	}
	members, err := s.repo.Members(ctx, kind)
	if err != nil {
		return domain.Roster{}, s.fail(op, err)
	}

	lookup := BuildLookup(depts)
	if hasUnresolvedFreeText(lookup, members) {
		report, err := s.recover(ctx)
		if err != nil {
			return domain.Roster{}, s.fail(op, err)
		}
		s.logger.Info("roster load repaired departments",
			zap.String("kind", string(kind)),
			zap.Int("created", len(report.Created)),
			zap.Int("updated_students", report.UpdatedStudents),
			zap.Int("updated_faculty", report.UpdatedFaculty),
		)
		if depts, err = s.repo.Departments(ctx); err != nil {
			return domain.Roster{}, s.fail(op, err)
		}
		if members, err = s.repo.Members(ctx, kind); err != nil {
			return domain.Roster{}, s.fail(op, err)
		}
	} else {
		// Nothing to recover, but ids given as a code or name still need
		// rewriting to the canonical id.
		resolved, changed := Resolve(members, lookup)
		if changed > 0 {
			if err := s.repo.SaveMembers(ctx, kind, resolved); err != nil {
				return domain.Roster{}, s.fail(op, err)
			}
			s.metrics.MembersUpdated(kind, changed)
			members = resolved
		}
	}

	s.metrics.ObserveOperation(op, ports.OutcomeOK)
	return domain.Roster{Kind: kind, Members: members, Departments: depts}, nil
}

// recover must be called with s.mu held.
func (s *DirectoryService) recover(ctx context.Context) (domain.RecoveryReport, error) {
	depts, err := s.repo.Departments(ctx)
	if err != nil {
		return domain.RecoveryReport{}, err
	}
	students, err := s.repo.Members(ctx, domain.KindStudent)
	if err != nil {
		return domain.RecoveryReport{}, err
	}
	faculty, err := s.repo.Members(ctx, domain.KindFaculty)
	if err != nil {
		return domain.RecoveryReport{}, err
	}

	all, created := SynthesizeDepartments(depts, students, faculty)
	if len(created) > 0 {
		if err := s.repo.SaveDepartments(ctx, all); err != nil {
			return domain.RecoveryReport{}, err
		}
		s.metrics.DepartmentsSynthesized(len(created))
		for _, d := range created {
			s.logger.Info("department recovered from member records",
				zap.String("id", d.ID),
				zap.String("name", d.Name),
			)
		}
	}

	lookup := BuildLookup(all)
	resolved, err := s.resolveLoaded(ctx, lookup, map[domain.MemberKind][]domain.Member{
		domain.KindStudent: students,
		domain.KindFaculty: faculty,
	})
	if err != nil {
		return domain.RecoveryReport{}, err
	}

	if created == nil {
		created = []domain.Department{}
	}
	return domain.RecoveryReport{
		Created:         created,
		UpdatedStudents: resolved.UpdatedStudents,
		UpdatedFaculty:  resolved.UpdatedFaculty,
	}, nil
}

func (s *DirectoryService) resolveAll(ctx context.Context, lookup Lookup) (domain.ResolutionReport, error) {
	loaded := make(map[domain.MemberKind][]domain.Member, len(domain.MemberKinds))
	for _, kind := range domain.MemberKinds {
		members, err := s.repo.Members(ctx, kind)
		if err != nil {
			return domain.ResolutionReport{}, err
		}
		loaded[kind] = members
	}
	return s.resolveLoaded(ctx, lookup, loaded)
}

// resolveLoaded writes back only the collections that changed.
func (s *DirectoryService) resolveLoaded(ctx context.Context, lookup Lookup, loaded map[domain.MemberKind][]domain.Member) (domain.ResolutionReport, error) {
	var report domain.ResolutionReport
	for _, kind := range domain.MemberKinds {
		next, changed := Resolve(loaded[kind], lookup)
		if changed == 0 {
			continue
		}
		if err := s.repo.SaveMembers(ctx, kind, next); err != nil {
			return domain.ResolutionReport{}, err
		}
		s.metrics.MembersUpdated(kind, changed)
		switch kind {
		case domain.KindStudent:
			report.UpdatedStudents = changed
		case domain.KindFaculty:
			report.UpdatedFaculty = changed
		}
	}
	return report, nil
}

// propagateStatus sets status on every member of both collections that
// belongs to dept. It must be called with s.mu held.
func (s *DirectoryService) propagateStatus(ctx context.Context, dept domain.Department, status domain.Status) error {
	for _, kind := range domain.MemberKinds {
		members, err := s.repo.Members(ctx, kind)
		if err != nil {
			return err
		}
		next, changed := withStatus(members, dept, status)
		if changed == 0 {
			continue
		}
		if err := s.repo.SaveMembers(ctx, kind, next); err != nil {
			return err
		}
		s.metrics.MembersUpdated(kind, changed)
		s.logger.Debug("member status propagated",
			zap.String("department", dept.ID),
			zap.String("kind", string(kind)),
			zap.String("status", string(status)),
			zap.Int("count", changed),
		)
	}
	return nil
}

// belongsTo is the propagation rule: the member references the department
// by id, or still carries its name as free text.
func belongsTo(m domain.Member, d domain.Department) bool {
	if id := domain.NormalizeKey(d.ID); id != "" && domain.NormalizeKey(m.DepartmentID) == id {
		return true
	}
	name := domain.NormalizeKey(d.Name)
	if name == "" {
		return false
	}
	return domain.NormalizeKey(m.Department) == name || domain.NormalizeKey(m.LegacyDepartment) == name
}

func withStatus(members []domain.Member, dept domain.Department, status domain.Status) ([]domain.Member, int) {
	out := make([]domain.Member, len(members))
	changed := 0
	for i, m := range members {
		out[i] = m
		if !belongsTo(m, dept) || m.Status == status {
			continue
		}
		out[i] = m.Clone()
		out[i].Status = status
		changed++
	}
	return out, changed
}

// checkAliases rejects a department whose id, name or code is already an
// alias of another department. skip is the index of the department being
// edited, or -1.
func checkAliases(depts []domain.Department, skip int, d domain.Department) error {
	others := make([]domain.Department, 0, len(depts))
	for i, other := range depts {
		if i != skip {
			others = append(others, other)
		}
	}
	lookup := BuildLookup(others)

	if _, ok := lookup.Canonical(d.ID); ok {
		return domain.NewValidationError("id", domain.ErrDuplicateID)
	}
	if _, ok := lookup.Canonical(d.Name); ok {
		return domain.NewValidationError("name", domain.ErrDuplicateName)
	}
	if _, ok := lookup.Canonical(d.Code); ok {
		return domain.NewValidationError("code", domain.ErrDuplicateCode)
	}
	return nil
}

// departmentID picks the id for a new department: the code, else the name,
// else the creation time in milliseconds.
func departmentID(code, name string, now func() time.Time) string {
	if id := strings.TrimSpace(code); id != "" {
		return id
	}
	if id := strings.TrimSpace(name); id != "" {
		return id
	}
	return strconv.FormatInt(now().UnixMilli(), 10)
}

func findDepartment(depts []domain.Department, id string) int {
	key := domain.NormalizeKey(id)
	if key == "" {
		return -1
	}
	for i, d := range depts {
		if domain.NormalizeKey(d.ID) == key {
			return i
		}
	}
	return -1
}

func cloneDepartments(depts []domain.Department) []domain.Department {
	out := make([]domain.Department, len(depts), len(depts)+1)
	for i, d := range depts {
		out[i] = d.Clone()
	}
	return out
}

func (s *DirectoryService) reject(op string, err error) error {
	s.metrics.ObserveOperation(op, ports.OutcomeRejected)
	return err
}

// notFound logs and counts a soft miss. Lifecycle operations on an unknown
// id leave the collection unchanged and do not fail.
func (s *DirectoryService) notFound(op, id string) error {
	s.logger.Warn("department not found, nothing changed",
		zap.String("operation", op),
		zap.String("id", id),
	)
	s.metrics.ObserveOperation(op, ports.OutcomeNotFound)
	return nil
}

func (s *DirectoryService) fail(op string, err error) error {
	s.logger.Error("directory operation failed", zap.String("operation", op), zap.Error(err))
	s.metrics.ObserveOperation(op, ports.OutcomeError)
	return fmt.Errorf("%s: %w", op, err)
}
