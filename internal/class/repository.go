// internal/class/repository.go
package class

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateClass(ctx context.Context, c *models.Class) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		log.Printf("Error creating class: %v", err)
		return errors.Wrap(err, "create class")
	}
	log.Printf("Created class with ID: %d", c.ID)
	return nil
}

func (r *Repository) GetClass(ctx context.Context, id uint) (*models.Class, error) {
	var c models.Class
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("class")
		}
		return nil, errors.Wrapf(err, "get class %d", id)
	}
	return &c, nil
}

func (r *Repository) RenameClass(ctx context.Context, id uint, name string) error {
	err := r.db.WithContext(ctx).Model(&models.Class{}).Where("id = ?", id).Update("class_name", name).Error
	return errors.Wrapf(err, "rename class %d", id)
}

// DeleteClass soft-deletes the class, its quizzes and drops the roster.
func (r *Repository) DeleteClass(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", id).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("class_id = ?", id).Delete(&models.ClassMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Class{}, id).Error
	})
	if err != nil {
		log.Printf("Error deleting class %d: %v", id, err)
		return errors.Wrapf(err, "delete class %d", id)
	}
	return nil
}

func (r *Repository) ClassesByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Order("id").Find(&classes).Error
	return classes, errors.Wrapf(err, "classes for teacher %d", teacherID)
}

func (r *Repository) ClassesByStudent(ctx context.Context, studentID uint) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).
		Joins("JOIN class_members cm ON cm.class_id = classes.id").
		Where("cm.student_id = ?", studentID).
		Order("classes.id").
		Find(&classes).Error
	return classes, errors.Wrapf(err, "classes for student %d", studentID)
}

// AddMember is idempotent: enrolling an enrolled student changes nothing.
func (r *Repository) AddMember(ctx context.Context, classID, studentID uint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ClassMember{ClassID: classID, StudentID: studentID}).Error
	if err != nil {
		log.Printf("Error adding student %d to class %d: %v", studentID, classID, err)
		return errors.Wrapf(err, "add member %d to class %d", studentID, classID)
	}
	log.Printf("Added student %d to class %d", studentID, classID)
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, classID, studentID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&models.ClassMember{})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "remove member %d from class %d", studentID, classID)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) IsMember(ctx context.Context, classID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check membership")
	}
	return count > 0, nil
}

func (r *Repository) Roster(ctx context.Context, classID uint) ([]models.User, error) {
	var students []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN class_members cm ON cm.student_id = users.id").
		Where("cm.class_id = ?", classID).
		Order("users.full_name, users.id").
		Find(&students).Error
	return students, errors.Wrapf(err, "roster for class %d", classID)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("student")
		}
		return nil, errors.Wrapf(err, "find user %q", username)
	}
	return &user, nil
}

// QuizzesForClass is the class's quiz list, always queried from the quiz
// table rather than stored on the class.
func (r *Repository) QuizzesForClass(ctx context.Context, classID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Preload("Questions").
		Order("start_date, id").
		Find(&quizzes).Error
	return quizzes, errors.Wrapf(err, "quizzes for class %d", classID)
}
