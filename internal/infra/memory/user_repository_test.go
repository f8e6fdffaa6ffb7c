package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"classquiz-service/internal/domain"
)

func seedUsers(t *testing.T, repo *UserRepository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	creds := []domain.StoredCredential{
		{ID: "t1", Name: "Teacher", Email: "Teacher@Example.com", Role: domain.RoleTeacher, LastActive: now},
		{ID: "s1", Name: "Student", Email: "student@example.com", Role: domain.RoleStudent, LastActive: now},
	}
	for _, cred := range creds {
		if err := repo.Put(ctx, cred); err != nil {
			t.Fatalf("put %s: %v", cred.ID, err)
		}
	}
}

func TestUserRepositoryGetAndFindByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Email lookups are case-insensitive.
	cred, err := repo.FindByEmail(ctx, "teacher@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if cred.ID != "t1" {
		t.Fatalf("expected t1, got %s", cred.ID)
	}
}

func TestUserRepositoryUpdateFailureLeavesRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	boom := errors.New("boom")
	err := repo.Update(ctx, "t1", func(cred *domain.StoredCredential) error {
		cred.Name = "Changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	cred, _ := repo.Get(ctx, "t1")
	if cred.Name != "Teacher" {
		t.Fatalf("expected record untouched after failed update, got %q", cred.Name)
	}
}

func TestUpdatePairIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	err := repo.UpdatePair(ctx, "t1", "s1", func(teacher, student *domain.StoredCredential) error {
		teacher.StudentIDs = append(teacher.StudentIDs, student.ID)
		student.ClassroomIDs = append(student.ClassroomIDs, teacher.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("update pair: %v", err)
	}

	teacher, _ := repo.Get(ctx, "t1")
	student, _ := repo.Get(ctx, "s1")
	if len(teacher.StudentIDs) != 1 || len(student.ClassroomIDs) != 1 {
		t.Fatalf("expected both sides written, got %+v / %+v", teacher.StudentIDs, student.ClassroomIDs)
	}

	// A failing callback must roll back both records.
	boom := errors.New("boom")
	err = repo.UpdatePair(ctx, "t1", "s1", func(teacher, student *domain.StoredCredential) error {
		teacher.StudentIDs = nil
		student.ClassroomIDs = nil
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	teacher, _ = repo.Get(ctx, "t1")
	student, _ = repo.Get(ctx, "s1")
	if len(teacher.StudentIDs) != 1 || len(student.ClassroomIDs) != 1 {
		t.Fatalf("expected rollback, got %+v / %+v", teacher.StudentIDs, student.ClassroomIDs)
	}

	if err := repo.UpdatePair(ctx, "t1", "missing", func(_, _ *domain.StoredCredential) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing second record, got %v", err)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	seedUsers(t, repo)

	if err := repo.Update(ctx, "t1", func(cred *domain.StoredCredential) error {
		cred.StudentIDs = []string{"s1"}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	cred, _ := repo.Get(ctx, "t1")
	cred.StudentIDs[0] = "mutated"

	again, _ := repo.Get(ctx, "t1")
	if again.StudentIDs[0] != "s1" {
		t.Fatalf("expected stored slice isolated from caller mutation")
	}
}
