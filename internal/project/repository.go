package project

import (
	"errors"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"gorm.io/gorm"
)

// Repository interface defines project database operations
type Repository interface {
	List() ([]models.Project, error)
	Create(project *models.Project) error
	Update(project *models.Project) error
	Delete(key models.ProjectKey) error
	SaveAll(projects []models.Project) error
}

// repository implements Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new project repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// List retrieves every project in insertion order
func (r *repository) List() ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Order("id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Create creates a new project
func (r *repository) Create(project *models.Project) error {
	if project == nil {
		return errors.New("project cannot be nil")
	}
	return r.db.Create(project).Error
}

// Update updates an existing project
func (r *repository) Update(project *models.Project) error {
	if project == nil {
		return errors.New("project cannot be nil")
	}
	if project.ID == 0 {
		return errors.New("project has no id")
	}
	return r.db.Save(project).Error
}

// Delete removes the project with the given key
func (r *repository) Delete(key models.ProjectKey) error {
	if key.Address == "" || key.ChainID == "" {
		return errors.New("key cannot be empty")
	}
	return r.db.Where("chain_id = ? AND address = ?", key.ChainID, key.Address).
		Delete(&models.Project{}).Error
}

// SaveAll writes every project in one transaction
func (r *repository) SaveAll(projects []models.Project) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range projects {
			if projects[i].ID == 0 {
				return errors.New("project has no id")
			}
			if err := tx.Save(&projects[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
