package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/campus-portal/directory-service/internal/adapters/repository"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
	"github.com/AchilleasB/campus-portal/directory-service/test/mocks"
)

// mapStore is a bare ports.Store for exercising the repository encoding.
type mapStore struct {
	data   map[string][]byte
	getErr error
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (s *mapStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *mapStore) Set(ctx context.Context, key string, value []byte) error {
	s.data[key] = value
	return nil
}

func TestDirectoryRepository_EmptyStore(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDirectoryRepository(newMapStore(), ports.DefaultKeys(""))

	depts, err := repo.Departments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, depts)
	assert.Empty(t, depts)

	for _, kind := range domain.MemberKinds {
		members, err := repo.Members(ctx, kind)
		require.NoError(t, err)
		assert.NotNil(t, members)
		assert.Empty(t, members)
	}
}

func TestDirectoryRepository_StoresJSONArrays(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	keys := ports.DefaultKeys("campus")
	repo := repository.NewDirectoryRepository(st, keys)

	require.NoError(t, repo.SaveDepartments(ctx, []domain.Department{mocks.Department("CS", "Computer Science")}))
	assert.JSONEq(t, `[{"id":"CS","name":"Computer Science","code":"CS","description":"","status":"Active"}]`,
		string(st.data["campus:departments"]))

	require.NoError(t, repo.SaveMembers(ctx, domain.KindStudent, []domain.Member{mocks.Student("1", "Ali", "CS")}))
	assert.JSONEq(t, `[{"id":"1","name":"Ali","departmentId":"CS","status":"Active"}]`,
		string(st.data["campus:students"]))

	require.NoError(t, repo.SaveMembers(ctx, domain.KindFaculty, nil))
	assert.Equal(t, `[]`, string(st.data["campus:faculty"]))
}

func TestDirectoryRepository_ReadsPortalRecords(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	keys := ports.DefaultKeys("")
	st.data[keys.Students] = []byte(`[{"id":"1","name":"Ali","department":"Computer Science","departmentId":"","year":2}]`)
	st.data[keys.Departments] = []byte(`null`)

	repo := repository.NewDirectoryRepository(st, keys)

	students, err := repo.Members(ctx, domain.KindStudent)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Computer Science", students[0].Department)
	assert.Equal(t, `2`, string(students[0].Attributes["year"]))

	depts, err := repo.Departments(ctx)
	require.NoError(t, err)
	assert.Empty(t, depts)
}

func TestDirectoryRepository_Errors(t *testing.T) {
	ctx := context.Background()
	st := newMapStore()
	keys := ports.DefaultKeys("")
	repo := repository.NewDirectoryRepository(st, keys)

	_, err := repo.Members(ctx, domain.MemberKind("alumni"))
	assert.ErrorIs(t, err, domain.ErrUnknownMemberKind)

	st.data[keys.Departments] = []byte(`{not json`)
	_, err = repo.Departments(ctx)
	assert.Error(t, err)

	st.getErr = errors.New("timeout")
	_, err = repo.Members(ctx, domain.KindFaculty)
	assert.ErrorIs(t, err, st.getErr)
}
