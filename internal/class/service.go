// internal/class/service.go
package class

import (
	"context"
	"log"
	"strings"
	"time"

	"classquiz/internal/apperr"
	"classquiz/internal/auth"
	"classquiz/internal/models"
)

type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type ClassInput struct {
	ClassName string `json:"class_name" validate:"required,max=200"`
}

type AddStudentInput struct {
	Username string `json:"username" validate:"required"`
}

// Authorize loads the class and checks the caller may act on it: teachers
// must own it, students must be enrolled.
func (s *Service) Authorize(ctx context.Context, p auth.Principal, classID uint) (*models.Class, error) {
	c, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsTeacher():
		if c.TeacherID != p.ID {
			return nil, apperr.Forbidden("you do not own this class")
		}
	case p.IsStudent():
		member, err := s.repo.IsMember(ctx, classID, p.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperr.Forbidden("you are not enrolled in this class")
		}
	default:
		return nil, apperr.Forbidden("unknown role")
	}
	return c, nil
}

func (s *Service) authorizeOwner(ctx context.Context, p auth.Principal, classID uint) (*models.Class, error) {
	if !p.IsTeacher() {
		return nil, apperr.Forbidden("only the class teacher can do this")
	}
	return s.Authorize(ctx, p, classID)
}

func (s *Service) CreateClass(ctx context.Context, p auth.Principal, in ClassInput) (*models.Class, error) {
	if !p.IsTeacher() {
		return nil, apperr.Forbidden("only teachers can create classes")
	}
	c := &models.Class{ClassName: strings.TrimSpace(in.ClassName), TeacherID: p.ID}
	if c.ClassName == "" {
		return nil, apperr.Invalid("class_name is required")
	}
	if err := s.repo.CreateClass(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListClasses(ctx context.Context, p auth.Principal) ([]models.Class, error) {
	if p.IsTeacher() {
		return s.repo.ClassesByTeacher(ctx, p.ID)
	}
	return s.repo.ClassesByStudent(ctx, p.ID)
}

func (s *Service) GetClass(ctx context.Context, p auth.Principal, classID uint) (*models.ClassDetail, error) {
	c, err := s.Authorize(ctx, p, classID)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.repo.QuizzesForClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	detail := &models.ClassDetail{
		Class:    *c,
		Students: make([]models.UserInfo, len(students)),
		Quizzes:  make([]models.QuizSummary, len(quizzes)),
	}
	for i, st := range students {
		detail.Students[i] = st.Info()
	}
	for i, q := range quizzes {
		detail.Quizzes[i] = q.Summary(q.State(now).String())
	}
	return detail, nil
}

func (s *Service) RenameClass(ctx context.Context, p auth.Principal, classID uint, in ClassInput) (*models.Class, error) {
	c, err := s.authorizeOwner(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.ClassName)
	if name == "" {
		return nil, apperr.Invalid("class_name is required")
	}
	if err := s.repo.RenameClass(ctx, classID, name); err != nil {
		return nil, err
	}
	c.ClassName = name
	return c, nil
}

func (s *Service) DeleteClass(ctx context.Context, p auth.Principal, classID uint) error {
	if _, err := s.authorizeOwner(ctx, p, classID); err != nil {
		return err
	}
	return s.repo.DeleteClass(ctx, classID)
}

func (s *Service) AddStudent(ctx context.Context, p auth.Principal, classID uint, username string) (*models.UserInfo, error) {
	if _, err := s.authorizeOwner(ctx, p, classID); err != nil {
		return nil, err
	}
	student, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if student.Role != models.RoleStudent {
		return nil, apperr.Invalid("only students can be added to a class")
	}
	if err := s.repo.AddMember(ctx, classID, student.ID); err != nil {
		return nil, err
	}
	info := student.Info()
	return &info, nil
}

func (s *Service) RemoveStudent(ctx context.Context, p auth.Principal, classID, studentID uint) error {
	if _, err := s.authorizeOwner(ctx, p, classID); err != nil {
		return err
	}
	removed, err := s.repo.RemoveMember(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("student")
	}
	return nil
}

func (s *Service) Join(ctx context.Context, p auth.Principal, classID uint) (*models.Class, error) {
	if !p.IsStudent() {
		return nil, apperr.Forbidden("only students can join classes")
	}
	c, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, classID, p.ID); err != nil {
		return nil, err
	}
	log.Printf("Student %d joined class %d", p.ID, classID)
	return c, nil
}

func (s *Service) Leave(ctx context.Context, p auth.Principal, classID uint) error {
	if !p.IsStudent() {
		return apperr.Forbidden("only students can leave classes")
	}
	removed, err := s.repo.RemoveMember(ctx, classID, p.ID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.Forbidden("you are not enrolled in this class")
	}
	return nil
}
