package repository

import (
	"context"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"gorm.io/gorm"
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	FindByKey(ctx context.Context, key string) (*models.Category, error)
	FindOrCreate(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) FindByKey(ctx context.Context, key string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindOrCreate loads the category by key, inserting it when absent
func (r *categoryRepository) FindOrCreate(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).
		Where(models.Category{Key: category.Key}).
		Attrs(models.Category{Name: category.Name, Kind: category.Kind}).
		FirstOrCreate(category).Error
}
