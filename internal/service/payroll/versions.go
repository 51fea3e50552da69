package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
)

// Parameter and tax table versions are append-only. Activating a version only
// affects runs started afterwards; stored settlements keep their snapshot.

func (s *PayrollServiceImpl) ListParameters(ctx context.Context) ([]payroll.Parameters, error) {
	return s.parameterRepo.ListParameters(ctx)
}

func (s *PayrollServiceImpl) CreateParameters(ctx context.Context, req payroll.CreateParametersRequest, actor string) (payroll.Parameters, error) {
	if err := req.Validate(); err != nil {
		return payroll.Parameters{}, err
	}

	params := req.Parameters
	params.Version = 0
	params.Active = false
	params.ActivatedAt = nil
	params.CreatedBy = optional(actor)
	if params.OvertimeMultiplier.IsZero() {
		params.OvertimeMultiplier = payroll.DefaultOvertimeMultiplier
	}

	var created payroll.Parameters
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.parameterRepo.CreateParameters(txCtx, params)
		if err != nil {
			return fmt.Errorf("create parameters: %w", err)
		}
		if !req.Activate {
			return nil
		}
		now := s.now().UTC()
		if err := s.parameterRepo.ActivateParameters(txCtx, created.Version, now); err != nil {
			return err
		}
		created.Active = true
		created.ActivatedAt = &now
		return nil
	})
	if err != nil {
		return payroll.Parameters{}, err
	}

	s.logger.Info("payroll parameters created",
		slog.Int("version", created.Version),
		slog.Bool("active", created.Active),
		slog.String("actor", actor),
	)
	return created, nil
}

func (s *PayrollServiceImpl) ActivateParameters(ctx context.Context, version int) (payroll.Parameters, error) {
	var out payroll.Parameters
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		params, err := s.parameterRepo.GetParameters(txCtx, version)
		if err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return fmt.Errorf("%w: version %d: %v", payroll.ErrInvalidParameters, version, err)
		}
		now := s.now().UTC()
		if err := s.parameterRepo.ActivateParameters(txCtx, version, now); err != nil {
			return err
		}
		params.Active = true
		params.ActivatedAt = &now
		out = params
		return nil
	})
	if err != nil {
		return payroll.Parameters{}, err
	}

	s.logger.Info("payroll parameters activated", slog.Int("version", version))
	return out, nil
}

func (s *PayrollServiceImpl) ListTaxTables(ctx context.Context) ([]payroll.TaxTable, error) {
	return s.parameterRepo.ListTaxTables(ctx)
}

func (s *PayrollServiceImpl) CreateTaxTable(ctx context.Context, req payroll.CreateTaxTableRequest, actor string) (payroll.TaxTable, error) {
	if err := req.Validate(); err != nil {
		return payroll.TaxTable{}, err
	}

	table := payroll.TaxTable{
		Brackets:  req.Brackets,
		CreatedBy: optional(actor),
	}

	var created payroll.TaxTable
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.parameterRepo.CreateTaxTable(txCtx, table)
		if err != nil {
			return fmt.Errorf("create tax table: %w", err)
		}
		if !req.Activate {
			return nil
		}
		now := s.now().UTC()
		if err := s.parameterRepo.ActivateTaxTable(txCtx, created.Version, now); err != nil {
			return err
		}
		created.Active = true
		created.ActivatedAt = &now
		return nil
	})
	if err != nil {
		return payroll.TaxTable{}, err
	}

	s.logger.Info("tax table created",
		slog.Int("version", created.Version),
		slog.Int("brackets", len(created.Brackets)),
		slog.Bool("active", created.Active),
	)
	return created, nil
}

func (s *PayrollServiceImpl) ActivateTaxTable(ctx context.Context, version int) (payroll.TaxTable, error) {
	var out payroll.TaxTable
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		table, err := s.parameterRepo.GetTaxTable(txCtx, version)
		if err != nil {
			return err
		}
		if err := table.Validate(); err != nil {
			return fmt.Errorf("%w: version %d: %v", payroll.ErrInvalidTaxTable, version, err)
		}
		now := s.now().UTC()
		if err := s.parameterRepo.ActivateTaxTable(txCtx, version, now); err != nil {
			return err
		}
		table.Active = true
		table.ActivatedAt = &now
		out = table
		return nil
	})
	if err != nil {
		return payroll.TaxTable{}, err
	}

	s.logger.Info("tax table activated", slog.Int("version", version))
	return out, nil
}
