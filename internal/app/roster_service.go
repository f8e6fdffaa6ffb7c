package app

import (
	"context"
	"errors"

	"classquiz-service/internal/domain"
)

// RosterService maintains the teacher<->student membership pair. The two
// back-references are always written together through UpdatePair, so a
// crash or failed precondition never leaves one side updated.
type RosterService struct {
	users UserRepository
}

func NewRosterService(users UserRepository) *RosterService {
	return &RosterService{users: users}
}

// AddStudent enrolls a student into the teacher's classroom. Adds are
// idempotent: repeating the call leaves both lists unchanged.
func (s *RosterService) AddStudent(ctx context.Context, teacherID, studentID string) error {
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return err
	}
	return s.users.UpdatePair(ctx, teacherID, studentID, func(teacher, student *domain.StoredCredential) error {
		if student.Role != domain.RoleStudent {
			return domain.ErrNotFound
		}
		teacher.StudentIDs = appendUnique(teacher.StudentIDs, studentID)
		student.ClassroomIDs = appendUnique(student.ClassroomIDs, teacherID)
		return nil
	})
}

// RemoveStudent drops the pair of back-references. Removing a student who
// is not on the roster is a no-op, not an error.
func (s *RosterService) RemoveStudent(ctx context.Context, teacherID, studentID string) error {
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return err
	}
	return s.users.UpdatePair(ctx, teacherID, studentID, func(teacher, student *domain.StoredCredential) error {
		if student.Role != domain.RoleStudent {
			return domain.ErrNotFound
		}
		teacher.StudentIDs = removeString(teacher.StudentIDs, studentID)
		student.ClassroomIDs = removeString(student.ClassroomIDs, teacherID)
		return nil
	})
}

// ListStudents resolves the teacher's roster to current profiles,
// keeping only entries that still exist and still hold the student role.
func (s *RosterService) ListStudents(ctx context.Context, teacherID string) ([]domain.PublicProfile, error) {
	teacher, err := s.users.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if teacher.Role != domain.RoleTeacher {
		return nil, domain.ErrPermissionDenied
	}
	students := make([]domain.PublicProfile, 0, len(teacher.StudentIDs))
	for _, id := range teacher.StudentIDs {
		cred, err := s.users.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if cred.Role != domain.RoleStudent {
			continue
		}
		students = append(students, cred.Profile())
	}
	return students, nil
}

// ListTeachers returns the profiles of every teacher in the store.
func (s *RosterService) ListTeachers(ctx context.Context) ([]domain.PublicProfile, error) {
	creds, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	teachers := make([]domain.PublicProfile, 0, len(creds))
	for _, cred := range creds {
		if cred.Role == domain.RoleTeacher {
			teachers = append(teachers, cred.Profile())
		}
	}
	return teachers, nil
}

func (s *RosterService) requireTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.users.Get(ctx, teacherID)
	if err != nil {
		return err
	}
	if teacher.Role != domain.RoleTeacher {
		return domain.ErrPermissionDenied
	}
	return nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeString(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
