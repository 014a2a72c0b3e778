package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRunInTx_RollsBackOnError(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	account := &models.Account{Name: "Car loan", Kind: models.AccountKindLoan}
	require.NoError(t, repos.Account.Create(ctx, account))

	boom := errors.New("ledger unavailable")
	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		require.NoError(t, tx.Installment.CreateBatch(ctx, []models.Installment{
			{AccountID: account.ID, Sequence: 1, Status: models.InstallmentStatusPlanned, DueDate: time.Now()},
		}))
		_, err := tx.Ledger.CreateTransfer(ctx, &models.LedgerTransfer{
			SourceAccountID: 99, DestinationAccountID: account.ID, Amount: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := repos.Installment.FindByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	inbound, err := repos.Ledger.SumInbound(ctx, account.ID, "")
	require.NoError(t, err)
	assert.True(t, inbound.IsZero())
}

func TestRunInTx_Commits(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Account.Create(ctx, &models.Account{Name: "Checking", Kind: models.AccountKindDepository})
	})
	require.NoError(t, err)

	account, err := repos.Account.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Checking", account.Name)
}

func TestFindByID_NotFound(t *testing.T) {
	_, err := NewStore().Repositories().Account.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkPosted_RejectsSecondPost(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	rows := []models.Installment{
		{AccountID: 1, Sequence: 1, Status: models.InstallmentStatusPlanned},
		{AccountID: 1, Sequence: 1, Status: models.InstallmentStatusPlanned},
	}
	require.NoError(t, repos.Installment.CreateBatch(ctx, rows))

	ref := "ref-1"
	first := rows[0]
	first.TransferRef = &ref
	require.NoError(t, repos.Installment.MarkPosted(ctx, &first))
	assert.ErrorIs(t, repos.Installment.MarkPosted(ctx, &first), repository.ErrAlreadyPosted)

	// same sequence on a different row violates the posted uniqueness
	second := rows[1]
	assert.ErrorIs(t, repos.Installment.MarkPosted(ctx, &second), repository.ErrAlreadyPosted)

	found, err := repos.Installment.FindBySequence(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.True(t, found.IsPosted())
}

func TestDeleteReplaceable_KeepsHistory(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Installment.CreateBatch(ctx, []models.Installment{
		{AccountID: 1, Sequence: 1, Status: models.InstallmentStatusPosted, DueDate: today.AddDate(0, -2, 0)},
		{AccountID: 1, Sequence: 2, Status: models.InstallmentStatusPlanned, DueDate: today.AddDate(0, -1, 0)},
		{AccountID: 1, Sequence: 3, Status: models.InstallmentStatusPlanned, DueDate: today},
		{AccountID: 2, Sequence: 1, Status: models.InstallmentStatusPlanned, DueDate: today},
	}))

	deleted, err := repos.Installment.DeleteReplaceable(ctx, 1, today, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rows, err := repos.Installment.FindByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Sequence)

	other, err := repos.Installment.FindByAccount(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestCategoryFindOrCreate(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	first := &models.Category{Key: models.CategoryLateFee, Name: "Late fee"}
	require.NoError(t, repos.Category.FindOrCreate(ctx, first))
	second := &models.Category{Key: models.CategoryLateFee, Name: "ignored"}
	require.NoError(t, repos.Category.FindOrCreate(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Late fee", second.Name)
	assert.Equal(t, "expense", second.Kind)
}
