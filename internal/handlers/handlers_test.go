package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/repository/memory"
	"github.com/sjperalta/fintera-ledger/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *repository.Repositories) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memory.NewStore().Repositories()
	svcs := services.NewServices(repos, nil, services.Options{Now: func() time.Time { return testToday }})

	router := gin.New()
	Register(router.Group("/api/v1"), NewHandlers(svcs))
	return router, repos
}

func createAccount(t *testing.T, repos *repository.Repositories, account *models.Account) uint {
	t.Helper()
	require.NoError(t, repos.Account.Create(context.Background(), account))
	return account.ID
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	w, _ := do(t, router, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fintera-ledger")
}

func TestSchedulePreview(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := do(t, router, http.MethodPost, "/api/v1/schedules/preview",
		`{"terms": {"principal": "1200", "annual_rate": 0, "term": 3, "start_date": "2025-01-15"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var preview services.SchedulePreview
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	require.Len(t, preview.Rows, 3)
	assert.True(t, preview.Rows[0].Principal.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "2025-02-15", preview.Rows[0].DueDate.Format(dateLayout))
}

func TestSchedulePreview_Rejections(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{"principal": "abc"`, http.StatusBadRequest},
		{"invalid term", `{"principal": "1200", "term": 0, "start_date": "2025-01-15"}`, http.StatusUnprocessableEntity},
		{"unknown method", `{"principal": "1200", "term": 3, "method": "bullet", "start_date": "2025-01-15"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"principal": "1200", "term": 3, "start_date": "15/01/2025"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodPost, "/api/v1/schedules/preview", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestLoanLifecycle(t *testing.T) {
	router, repos := setupRouter(t)
	loanID := createAccount(t, repos, &models.Account{Name: "Car loan", Kind: models.AccountKindLoan, InitialBalance: decimal.NewFromInt(6000)})
	checkingID := createAccount(t, repos, &models.Account{Name: "Checking", Kind: models.AccountKindDepository})

	w, env := do(t, router, http.MethodPut, "/api/v1/accounts/1/plan",
		`{"principal": "6000", "annual_rate": "12", "term": 6, "frequency": "monthly", "start_date": "2025-02-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan services.PlanResult
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	assert.Len(t, plan.Installments, 6)
	assert.Equal(t, loanID, plan.AccountID)

	body := `{"funding_account_id": 2, "sequence": 1, "date": "2025-03-01"}`
	w, env = do(t, router, http.MethodPost, "/api/v1/accounts/1/installments/post", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first services.PostResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.NotEmpty(t, first.TransferRef)
	assert.Equal(t, uint(2), checkingID)

	// retrying the same post is idempotent
	w, env = do(t, router, http.MethodPost, "/api/v1/accounts/1/installments/post", body)
	require.Equal(t, http.StatusOK, w.Code)
	var retry services.PostResult
	require.NoError(t, json.Unmarshal(env.Data, &retry))
	assert.True(t, retry.Idempotent)
	assert.Equal(t, first.TransferRef, retry.TransferRef)

	w, env = do(t, router, http.MethodGet, "/api/v1/accounts/1/remaining_principal", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary services.PrincipalSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.True(t, summary.Remaining.Equal(decimal.NewFromInt(6000).Sub(first.Installment.PrincipalAmount)))

	w, _ = do(t, router, http.MethodPost, "/api/v1/accounts/1/extra_payments",
		`{"payment": {"amount": "1000", "mode": "reduce_installment", "funding_account_id": 2}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = do(t, router, http.MethodGet, "/api/v1/accounts/1/installments", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list services.InstallmentList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Summary.Posted)
	assert.True(t, list.Summary.OutstandingPrincipal.Equal(summary.Remaining.Sub(decimal.NewFromInt(1000))))

	w, _ = do(t, router, http.MethodGet, "/api/v1/accounts/1/installments/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule_account_1.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestBNPLPayment(t *testing.T) {
	router, repos := setupRouter(t)
	createAccount(t, repos, &models.Account{Name: "Laptop", Kind: models.AccountKindBNPL, CreditLimit: decimal.NewFromInt(2000)})
	createAccount(t, repos, &models.Account{Name: "Checking", Kind: models.AccountKindDepository})

	w, _ := do(t, router, http.MethodPut, "/api/v1/accounts/1/bnpl_plan",
		`{"principal": "300", "rate": 0, "installments": 3, "start_date": "2025-01-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := do(t, router, http.MethodPost, "/api/v1/accounts/1/payments", `{"funding_account_id": 2, "amount": "150", "date": "2025-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result services.AllocationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, services.StrategyOverpayment, result.Strategy)
	assert.Len(t, result.Allocations, 2)
	assert.True(t, result.AvailableCredit.Equal(decimal.NewFromInt(1850)))

	// paying a loan endpoint with a BNPL account is the wrong instrument
	w, env = do(t, router, http.MethodPost, "/api/v1/accounts/1/installments/post", `{"funding_account_id": 2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
}

func TestErrorStatuses(t *testing.T) {
	router, repos := setupRouter(t)
	createAccount(t, repos, &models.Account{Name: "Car loan", Kind: models.AccountKindLoan})
	createAccount(t, repos, &models.Account{Name: "Checking", Kind: models.AccountKindDepository})

	w, _ := do(t, router, http.MethodGet, "/api/v1/accounts/abc/installments", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/accounts/99/installments", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/accounts/1/installments/post", `{"funding_account_id": 2}`)
	assert.Equal(t, http.StatusConflict, w.Code, "a loan without a plan has nothing to post")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusConflict, statusFor(services.ErrConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestJobStatus_WithoutWorker(t *testing.T) {
	router, _ := setupRouter(t)
	w, _ := do(t, router, http.MethodGet, "/api/v1/jobs/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running": false}`, w.Body.String())
}
