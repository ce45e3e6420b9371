package repository

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmails returns the users whose email is in the list
func (r *GormUserRepository) FindByEmails(emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.Where("email IN ?", emails).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Update saves profile fields of a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Model(user).Select("first_name", "last_name").Updates(user).Error
}

// TouchLastLogin sets the last login timestamp
func (r *GormUserRepository) TouchLastLogin(id uint64, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}
