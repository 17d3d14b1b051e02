package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/revizorlab/revizor-api/internal/models"
)

// StudentRepository defines persistence operations for students.
type StudentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByLogin(ctx context.Context, login string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByLogin(ctx context.Context, login string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("login = ?", login).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}
