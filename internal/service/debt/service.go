package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DebtServiceImpl struct {
	txManager    database.TxManager
	debtRepo     debt.DebtRepository
	contractRepo employee.ContractRepository
	now          func() time.Time
}

func NewDebtService(txManager database.TxManager, debtRepo debt.DebtRepository, contractRepo employee.ContractRepository) debt.DebtService {
	return &DebtServiceImpl{
		txManager:    txManager,
		debtRepo:     debtRepo,
		contractRepo: contractRepo,
		now:          time.Now,
	}
}

// CreateAdvance records a salary advance to be withheld from the payslip of
// its due period.
func (s *DebtServiceImpl) CreateAdvance(ctx context.Context, req debt.CreateAdvanceRequest) (debt.Advance, error) {
	if err := req.Validate(); err != nil {
		return debt.Advance{}, err
	}
	if _, err := s.contractRepo.GetContract(ctx, req.EmployeeID); err != nil {
		return debt.Advance{}, err
	}

	now := s.now().UTC()
	a := debt.Advance{
		ID:         uuid.New().String(),
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount.Round(2),
		PaidAmount: decimal.Zero,
		Due:        req.Due(),
		Status:     debt.StatusPending,
		Note:       req.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.debtRepo.CreateAdvance(ctx, a)
	if err != nil {
		return debt.Advance{}, fmt.Errorf("failed to create advance: %w", err)
	}

	slog.Info("advance created",
		"advance_id", created.ID,
		"employee_id", created.EmployeeID,
		"amount", created.Amount.StringFixed(2),
		"due", created.Due.String(),
	)
	return created, nil
}

// CreateCredit records a credit and its monthly installment schedule in one
// transaction.
func (s *DebtServiceImpl) CreateCredit(ctx context.Context, req debt.CreateCreditRequest) (debt.CreditResponse, error) {
	if err := req.Validate(); err != nil {
		return debt.CreditResponse{}, err
	}
	if _, err := s.contractRepo.GetContract(ctx, req.EmployeeID); err != nil {
		return debt.CreditResponse{}, err
	}

	now := s.now().UTC()
	c := debt.Credit{
		ID:                uuid.New().String(),
		EmployeeID:        req.EmployeeID,
		Principal:         req.Principal,
		InstallmentAmount: req.InstallmentAmount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	installments, err := debt.BuildSchedule(&c, req.FirstDue())
	if err != nil {
		return debt.CreditResponse{}, err
	}
	for i := range installments {
		installments[i].ID = uuid.New().String()
		installments[i].UpdatedAt = now
	}

	var created debt.Credit
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.debtRepo.CreateCredit(txCtx, c, installments)
		return err
	})
	if err != nil {
		return debt.CreditResponse{}, fmt.Errorf("failed to create credit: %w", err)
	}

	slog.Info("credit created",
		"credit_id", created.ID,
		"employee_id", created.EmployeeID,
		"principal", created.Principal.StringFixed(2),
		"installments", len(installments),
	)
	return debt.CreditResponse{Credit: created, Installments: installments}, nil
}

func (s *DebtServiceImpl) GetCredit(ctx context.Context, id string) (debt.CreditResponse, error) {
	c, err := s.debtRepo.GetCredit(ctx, id)
	if err != nil {
		return debt.CreditResponse{}, err
	}
	installments, err := s.debtRepo.ListInstallments(ctx, id)
	if err != nil {
		return debt.CreditResponse{}, fmt.Errorf("failed to list installments: %w", err)
	}
	if err := c.CheckBalance(); err != nil {
		slog.Warn("credit ledger out of balance", "credit_id", id, "error", err)
	}
	return debt.CreditResponse{Credit: c, Installments: installments}, nil
}
