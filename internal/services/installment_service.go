package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/xuri/excelize/v2"
)

// InstallmentService serves read views of a plan
type InstallmentService struct {
	repos     *repository.Repositories
	principal *RemainingPrincipalCalculator
	currency  string // for accounts without one
}

// PlanSummary aggregates an installment plan
type PlanSummary struct {
	Count                int                 `json:"count"`
	Planned              int                 `json:"planned"`
	Posted               int                 `json:"posted"`
	PartiallyPaid        int                 `json:"partially_paid"`
	Paid                 int                 `json:"paid"`
	TotalPrincipal       decimal.Decimal     `json:"total_principal"`
	TotalInterest        decimal.Decimal     `json:"total_interest"`
	OutstandingPrincipal decimal.Decimal     `json:"outstanding_principal"`
	NextDue              *models.Installment `json:"next_due,omitempty"`
}

// InstallmentList is the plan of one account
type InstallmentList struct {
	Account      *models.Account      `json:"account"`
	Installments []models.Installment `json:"installments"`
	Summary      PlanSummary          `json:"summary"`
}

// ScheduleExport is a rendered workbook
type ScheduleExport struct {
	Filename string
	Content  []byte
}

func NewInstallmentService(repos *repository.Repositories, principal *RemainingPrincipalCalculator, defaultCurrency string) *InstallmentService {
	return &InstallmentService{repos: repos, principal: principal, currency: defaultCurrency}
}

// ListInstallments returns the plan with its summary
func (s *InstallmentService) ListInstallments(ctx context.Context, accountID uint) Result[*InstallmentList] {
	return run("list_installments", accountID, func() (*InstallmentList, error) {
		return s.load(ctx, accountID)
	})
}

func (s *InstallmentService) load(ctx context.Context, accountID uint) (*InstallmentList, error) {
	account, err := s.repos.Account.FindByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account %d", accountID)
	}
	if !account.IsDebt() {
		return nil, fmt.Errorf("account %d is a %s account: %w", accountID, account.Kind, ErrWrongInstrument)
	}
	installments, err := s.repos.Installment.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	return &InstallmentList{
		Account:      account,
		Installments: installments,
		Summary:      SummarizePlan(installments),
	}, nil
}

// SummarizePlan counts installments by status and totals their amounts
func SummarizePlan(installments []models.Installment) PlanSummary {
	summary := PlanSummary{Count: len(installments)}
	for i := range installments {
		inst := &installments[i]
		summary.TotalPrincipal = summary.TotalPrincipal.Add(inst.PrincipalAmount)
		summary.TotalInterest = summary.TotalInterest.Add(inst.InterestAmount)

		switch inst.Status {
		case models.InstallmentStatusPlanned:
			summary.Planned++
		case models.InstallmentStatusPosted:
			summary.Posted++
		case models.InstallmentStatusPartiallyPaid:
			summary.PartiallyPaid++
		case models.InstallmentStatusPaid:
			summary.Paid++
		}

		if inst.IsUnpaid() {
			summary.OutstandingPrincipal = summary.OutstandingPrincipal.Add(inst.OutstandingPrincipal())
			if summary.NextDue == nil {
				summary.NextDue = inst
			}
		}
	}
	return summary
}

// ExportSchedule renders the plan as an xlsx workbook
func (s *InstallmentService) ExportSchedule(ctx context.Context, accountID uint) Result[*ScheduleExport] {
	return run("export_schedule", accountID, func() (*ScheduleExport, error) {
		list, err := s.load(ctx, accountID)
		if err != nil {
			return nil, err
		}
		remaining, err := s.principal.Compute(ctx, s.repos, list.Account)
		if err != nil {
			return nil, err
		}
		currency := list.Account.Currency
		if currency == "" {
			currency = s.currency
		}
		content, err := renderWorkbook(list, remaining, currency)
		if err != nil {
			return nil, err
		}
		return &ScheduleExport{
			Filename: fmt.Sprintf("schedule_account_%d.xlsx", accountID),
			Content:  content,
		}, nil
	})
}

func renderWorkbook(list *InstallmentList, remaining decimal.Decimal, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Schedule"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	_ = f.SetCellValue(sheet, "A1", list.Account.Name)
	_ = f.SetCellValue(sheet, "A2", "Remaining principal")
	_ = f.SetCellValue(sheet, "B2", remaining.InexactFloat64())
	_ = f.SetCellStyle(sheet, "B2", "B2", moneyStyle)
	_ = f.SetCellValue(sheet, "C2", currency)

	headers := []string{"#", "Due date", "Principal", "Interest", "Balloon", "Total", "Paid", "Status", "Ledger reference"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A4", "I4", headerStyle)

	for i, inst := range list.Installments {
		row := i + 5
		ref := ""
		if inst.TransferRef != nil {
			ref = *inst.TransferRef
		}
		values := []interface{}{
			inst.Sequence,
			inst.DueDate.Format("2006-01-02"),
			inst.PrincipalAmount.InexactFloat64(),
			inst.InterestAmount.InexactFloat64(),
			inst.BalloonAmount.InexactFloat64(),
			inst.TotalAmount.InexactFloat64(),
			inst.PaidAmount().InexactFloat64(),
			inst.Status,
			ref,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		from, _ := excelize.CoordinatesToCellName(3, row)
		to, _ := excelize.CoordinatesToCellName(7, row)
		_ = f.SetCellStyle(sheet, from, to, moneyStyle)
	}

	totalRow := len(list.Installments) + 5
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), list.Summary.TotalPrincipal.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", totalRow), list.Summary.TotalInterest.InexactFloat64())
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("I%d", totalRow), headerStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
