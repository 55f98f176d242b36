package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/notify"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/repository"
	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/store"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/services"
	"github.com/AchilleasB/campus-portal/directory-service/test/mocks"
)

// session is one client of the shared directory: its own store, service and
// cached view, like one browser tab.
type session struct {
	store *store.Observed
	repo  *repository.DirectoryRepository
	svc   *services.DirectoryService
	view  *services.DirectoryView
}

func openSession(t *testing.T, ctx context.Context, backend *store.MemoryBackend) *session {
	t.Helper()
	logger := zap.NewNop()
	keys := ports.DefaultKeys("")

	st := store.NewObserved(backend, notify.NewHub(logger), keys, logger)
	go func() { _ = st.Run(ctx) }()

	repo := repository.NewDirectoryRepository(st, keys)
	s := &session{
		store: st,
		repo:  repo,
		svc:   services.NewDirectoryService(repo, mocks.NewMockMetrics(), logger),
		view:  services.NewDirectoryView(repo, st, logger),
	}
	go func() { _ = s.view.Run(ctx) }()

	select {
	case <-s.view.Ready():
	case <-time.After(time.Second):
		t.Fatal("view did not load")
	}
	return s
}

func waitForListeners(t *testing.T, backend *store.MemoryBackend, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return backend.Listeners() == n }, time.Second, 5*time.Millisecond)
}

func TestDirectoryView_FollowsOtherSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := store.NewMemoryBackend()
	tabA := openSession(t, ctx, backend)
	tabB := openSession(t, ctx, backend)
	waitForListeners(t, backend, 2)

	_, err := tabA.svc.CreateDepartment(ctx, domain.DepartmentInput{Name: "Computer Science", Code: "CS"})
	require.NoError(t, err)

	for name, s := range map[string]*session{"writer": tabA, "other tab": tabB} {
		assert.Eventually(t, func() bool {
			depts := s.view.Departments()
			return len(depts) == 1 && depts[0].ID == "CS"
		}, time.Second, 5*time.Millisecond, name)
	}

	_, err = tabB.svc.SaveMember(ctx, domain.KindStudent, domain.Member{ID: "1", Name: "Ali", DepartmentID: "CS"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(tabA.view.Members(domain.KindStudent)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDirectoryView_ReturnsCopies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := store.NewMemoryBackend()
	s := openSession(t, ctx, backend)

	_, err := s.svc.CreateDepartment(ctx, domain.DepartmentInput{Name: "History", Code: "HIST"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.view.Departments()) == 1 }, time.Second, 5*time.Millisecond)

	depts := s.view.Departments()
	depts[0].Name = "changed"
	assert.Equal(t, "History", s.view.Departments()[0].Name)
}

// Two sessions that both load, edit and write the whole collection lose one
// of the edits. This is the documented last-writer-wins behaviour.
func TestConcurrentSessions_LastWriterWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := store.NewMemoryBackend()
	tabA := openSession(t, ctx, backend)
	tabB := openSession(t, ctx, backend)

	staleA, err := tabA.repo.Departments(ctx)
	require.NoError(t, err)

	_, err = tabB.svc.CreateDepartment(ctx, domain.DepartmentInput{Name: "History", Code: "HIST"})
	require.NoError(t, err)

	// Tab A writes from its stale copy.
	staleA = append(staleA, domain.Department{ID: "ART", Name: "Art", Code: "ART", Status: domain.StatusActive})
	require.NoError(t, tabA.repo.SaveDepartments(ctx, staleA))

	final, err := tabB.repo.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, "ART", final[0].ID, "HIST was overwritten")
}

// chanNotifier hands the view a channel the test writes to.
type chanNotifier struct {
	ch chan ports.ChangeEvent
}

func (n chanNotifier) Subscribe(ctx context.Context) <-chan ports.ChangeEvent {
	return n.ch
}

func TestDirectoryView_ResyncReloadsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := mocks.NewMockDirectoryRepository()
	notifier := chanNotifier{ch: make(chan ports.ChangeEvent, 1)}
	view := services.NewDirectoryView(repo, notifier, zap.NewNop())
	go func() { _ = view.Run(ctx) }()

	select {
	case <-view.Ready():
	case <-time.After(time.Second):
		t.Fatal("view did not load")
	}
	require.Empty(t, view.Departments())

	// Writes whose notifications were lost.
	repo.SeedDepartments(mocks.Department("CS", "Computer Science"))
	repo.SeedMembers(domain.KindFaculty, mocks.Student("f1", "Dr. Khan", "CS"))

	notifier.ch <- ports.ChangeEvent{ID: "evt-1", Name: ports.EventResync}

	assert.Eventually(t, func() bool {
		return len(view.Departments()) == 1 && len(view.Members(domain.KindFaculty)) == 1
	}, time.Second, 5*time.Millisecond)
}
