package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/dto"
	"github.com/revizorlab/revizor-api/internal/models"
)

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	nextID      uint
	assignments map[uint]models.Assignment
	getCalls    int
}

func (r *fakeAssignmentRepo) List(ctx context.Context, search string) ([]models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Assignment
	for _, assignment := range r.assignments {
		out = append(out, assignment)
	}
	return out, nil
}

func (r *fakeAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	assignment, ok := r.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (r *fakeAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nextID == 0 {
		r.nextID = uint(len(r.assignments))
	}
	r.nextID++
	assignment.ID = r.nextID
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *fakeAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *fakeAssignmentRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.assignments, id)
	return nil
}

func newCachedAssignmentService(t *testing.T, repo *fakeAssignmentRepo) (AssignmentService, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewAssignmentService(repo, client, time.Minute, validate, testLogger()), server
}

func TestTaskReadsThroughCache(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{
		1: {ID: 1, Title: "Lab 1", Task: "write a report"},
	}}
	service, server := newCachedAssignmentService(t, repo)

	task, err := service.Task(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "write a report", task)
	require.Equal(t, 1, repo.getCalls)
	require.True(t, server.Exists("assignment:task:1"))

	// Second read comes from the cache, not the repository.
	task, err = service.Task(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "write a report", task)
	require.Equal(t, 1, repo.getCalls)
}

func TestUpdateInvalidatesTaskCache(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{
		1: {ID: 1, Title: "Lab 1", Task: "old task"},
	}}
	service, server := newCachedAssignmentService(t, repo)

	_, err := service.Task(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, server.Exists("assignment:task:1"))

	newTask := "write a report on the updated topic"
	_, err = service.Update(context.Background(), 1, dto.AssignmentUpdateRequest{Task: &newTask})
	require.NoError(t, err)
	require.False(t, server.Exists("assignment:task:1"))

	task, err := service.Task(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, newTask, task)
}

func TestTaskUnknownAssignment(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{}}
	service, _ := newCachedAssignmentService(t, repo)

	_, err := service.Task(context.Background(), 7)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestCreateAssignmentParsesDueDate(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{}}
	service, _ := newCachedAssignmentService(t, repo)

	created, err := service.Create(context.Background(), dto.AssignmentCreateRequest{
		Title:   "Lab 2",
		Task:    "measure cache hit rates",
		DueDate: "2026-10-01T00:00:00Z",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "Lab 2", created.Title)

	_, err = service.Create(context.Background(), dto.AssignmentCreateRequest{
		Title:   "Lab 3",
		Task:    "task",
		DueDate: "next tuesday",
	})
	require.Error(t, err)
}

func TestCreateAssignmentValidates(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{}}
	service, _ := newCachedAssignmentService(t, repo)

	_, err := service.Create(context.Background(), dto.AssignmentCreateRequest{Title: "no task"})
	require.Error(t, err)
}

func TestDeleteAssignmentDropsCache(t *testing.T) {
	repo := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{
		1: {ID: 1, Title: "Lab 1", Task: "task"},
	}}
	service, server := newCachedAssignmentService(t, repo)

	_, err := service.Task(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), 1))
	require.False(t, server.Exists("assignment:task:1"))

	require.ErrorIs(t, service.Delete(context.Background(), 1), ErrAssignmentNotFound)
}
