// internal/quiz/repository.go
package quiz

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
	"classquiz/pkg/database"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	err := r.db.WithContext(ctx).Create(quiz).Error
	if err != nil {
		log.Printf("Error creating quiz: %v", err)
		return errors.Wrap(err, "create quiz")
	}
	log.Printf("Created quiz with ID: %d", quiz.ID)
	return nil
}

// GetQuiz loads a quiz with its questions and options in stored order.
func (r *Repository) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", byPosition).
		Preload("Questions.Options", byPosition).
		First(&quiz, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiz")
		}
		log.Printf("Error getting quiz %d: %v", id, err)
		return nil, errors.Wrapf(err, "get quiz %d", id)
	}
	return &quiz, nil
}

func (r *Repository) QuizzesForClass(ctx context.Context, classID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Preload("Questions").
		Order("start_date, id").
		Find(&quizzes).Error
	if err != nil {
		log.Printf("Error getting quizzes for class %d: %v", classID, err)
		return nil, errors.Wrapf(err, "quizzes for class %d", classID)
	}
	return quizzes, nil
}

// ReplaceQuiz overwrites name, schedule and the whole question set.
func (r *Repository) ReplaceQuiz(ctx context.Context, quiz *models.Quiz) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Quiz{ID: quiz.ID}).Updates(map[string]interface{}{
			"quiz_name":  quiz.QuizName,
			"start_date": quiz.StartDate,
			"duration":   quiz.Duration,
		}).Error; err != nil {
			return err
		}

		var questionIDs []uint
		if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quiz.ID).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.Question{}).Error; err != nil {
				return err
			}
		}

		for i := range quiz.Questions {
			quiz.Questions[i].QuizID = quiz.ID
		}
		if len(quiz.Questions) == 0 {
			return nil
		}
		return tx.Create(&quiz.Questions).Error
	})
	if err != nil {
		log.Printf("Error updating quiz %d: %v", quiz.ID, err)
		return errors.Wrapf(err, "replace quiz %d", quiz.ID)
	}
	log.Printf("Updated quiz with ID: %d", quiz.ID)
	return nil
}

func (r *Repository) DeleteQuiz(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&models.Quiz{}, id).Error
	return errors.Wrapf(err, "delete quiz %d", id)
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("student")
		}
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return &user, nil
}

func (r *Repository) HasResponse(ctx context.Context, studentID, quizID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check prior response")
	}
	return count > 0, nil
}

func (r *Repository) CountResponses(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, errors.Wrapf(err, "count responses for quiz %d", quizID)
}

// SaveResponse inserts the attempt. The (student_id, quiz_id) unique index
// decides races: the losing insert comes back as AlreadySubmitted.
func (r *Repository) SaveResponse(ctx context.Context, response *models.StudentResponse) error {
	err := r.db.WithContext(ctx).Create(response).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.New(apperr.KindAlreadySubmitted, "quiz already submitted")
		}
		log.Printf("Error saving response of student %d for quiz %d: %v", response.StudentID, response.QuizID, err)
		return errors.Wrap(err, "save response")
	}
	return nil
}

func (r *Repository) GetResponse(ctx context.Context, studentID, quizID uint) (*models.StudentResponse, error) {
	var response models.StudentResponse
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		First(&response).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("result")
		}
		return nil, errors.Wrap(err, "get response")
	}
	return &response, nil
}

func (r *Repository) ResultsForQuiz(ctx context.Context, quizID uint) ([]models.ResultRecord, error) {
	var records []models.ResultRecord
	err := r.db.WithContext(ctx).
		Table("student_responses AS sr").
		Select(`sr.student_id, u.username, u.full_name, sr.quiz_id, q.quiz_name,
			c.class_name, sr.score, sr.out_of, sr.submitted_at`).
		Joins("JOIN users u ON u.id = sr.student_id").
		Joins("JOIN quizzes q ON q.id = sr.quiz_id").
		Joins("JOIN classes c ON c.id = q.class_id").
		Where("sr.quiz_id = ?", quizID).
		Order("sr.submitted_at, sr.id").
		Scan(&records).Error
	if err != nil {
		log.Printf("Error getting results for quiz %d: %v", quizID, err)
		return nil, errors.Wrapf(err, "results for quiz %d", quizID)
	}
	return records, nil
}

func (r *Repository) GetLeaderboard(ctx context.Context, quizID uint) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.username, sr.score
		FROM student_responses sr
		JOIN users u ON u.id = sr.student_id
		WHERE sr.quiz_id = ?
		ORDER BY sr.score DESC, u.username ASC
	`, quizID).Scan(&entries).Error
	if err != nil {
		log.Printf("Error getting leaderboard: %v", err)
		return nil, errors.Wrapf(err, "leaderboard for quiz %d", quizID)
	}
	return entries, nil
}
