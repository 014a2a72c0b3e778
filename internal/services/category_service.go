package services

import (
	"context"
	"fmt"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
)

// CategoryResolver maps a semantic key to a category record, creating it when absent
type CategoryResolver struct {
	names map[string]string
}

func NewCategoryResolver() *CategoryResolver {
	return &CategoryResolver{
		names: map[string]string{
			models.CategoryInterestExpense: "Interest Expense",
			models.CategoryLateFee:         "Late Fee",
			models.CategoryBNPLInterest:    "BNPL Interest",
			models.CategoryBNPLProfit:      "BNPL Profit",
		},
	}
}

// Resolve finds or creates the category identified by key using repo,
// which may be bound to the caller's transaction
func (r *CategoryResolver) Resolve(ctx context.Context, repo repository.CategoryRepository, key string) (*models.Category, error) {
	name, ok := r.names[key]
	if !ok {
		name = key
	}
	category := &models.Category{Key: key, Name: name, Kind: "expense"}
	if err := repo.FindOrCreate(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to resolve category %q: %w", key, err)
	}
	return category, nil
}
