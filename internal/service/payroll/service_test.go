package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func TestCompute_Scenario1_FullMonthNoPremiums(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)

	res, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Settlements, 1)

	s := res.Settlements[0]
	assert.Equal(t, payroll.StatusDraft, s.Status)
	assert.Equal(t, 22, s.WorkedDays)
	assertAmount(t, "40000", s.ProratedBase)
	assertAmount(t, "40000", s.CotisableTotal)
	assertAmount(t, "3600", s.SocialSecurity)
	assertAmount(t, "36400", s.TaxableIncome)
	assertAmount(t, "0", s.Tax)
	assertAmount(t, "36400", s.NetPay)
	assert.Equal(t, "36400.00", s.NetPay.StringFixed(2))
	assert.Equal(t, 1, s.ParametersVersion)
	assert.Equal(t, 1, s.TaxTableVersion)
	assert.Empty(t, s.Flags)
	assert.Empty(t, res.Skipped)
}

func TestScenario2_AdvanceDeducted(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.debts.advances["adv-1"] = debt.Advance{
		ID: "adv-1", EmployeeID: "emp-1", Amount: d("5000"), PaidAmount: decimal.Zero,
		Due: june, Status: debt.StatusPending,
	}
	ctx := context.Background()

	res, err := f.svc.Compute(ctx, june, employee.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Settlements, 1)
	s := res.Settlements[0]
	assertAmount(t, "5000", s.DebtDeduction)
	assertAmount(t, "31400", s.NetPay)
	require.Len(t, s.Deductions, 1)
	assert.Equal(t, debt.StatusPaid, s.Deductions[0].Outcome)

	// Compute never touches the ledger.
	assert.Equal(t, debt.StatusPending, f.debts.advances["adv-1"].Status)

	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)
	paid, err := f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, payroll.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidBy)
	assert.Equal(t, "owner-1", *paid.PaidBy)
	adv := f.debts.advances["adv-1"]
	assert.Equal(t, debt.StatusPaid, adv.Status)
	assertAmount(t, "5000", adv.PaidAmount)
}

func TestScenario3_InstallmentPartiallyDeferred(t *testing.T) {
	f := newFixture(t)
	f.params.params[0].SocialSecurityPct = decimal.Zero
	f.addEmployee(t, "emp-1", "6000", 22)

	credit := debt.Credit{ID: "cr-1", EmployeeID: "emp-1", Principal: d("16000"), InstallmentAmount: d("8000")}
	insts, err := debt.BuildSchedule(&credit, june)
	require.NoError(t, err)
	_, err = f.debts.CreateCredit(context.Background(), credit, insts)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := f.svc.Compute(ctx, june, employee.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Settlements, 1)
	s := res.Settlements[0]
	assertAmount(t, "6000", s.NetBeforeDebt)
	assertAmount(t, "6000", s.DebtDeduction)
	assertAmount(t, "2000", s.DebtDeferred)
	assertAmount(t, "0", s.NetPay)
	assert.True(t, s.HasFlag(payroll.FlagDebtDeferred))
	require.Len(t, s.Deductions, 1)
	line := s.Deductions[0]
	assert.Equal(t, debt.StatusDeferred, line.Outcome)
	require.NotNil(t, line.DeferredTo)
	assert.Equal(t, june.Next(), *line.DeferredTo)

	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	require.NoError(t, err)

	inst := f.debts.installments["cr-1-inst-1"]
	assert.Equal(t, debt.StatusDeferred, inst.Status)
	assert.Equal(t, june.Next(), inst.Due)
	assertAmount(t, "6000", inst.PaidAmount)

	cr := f.debts.credits["cr-1"]
	assert.Equal(t, debt.CreditPending, cr.Status)
	assert.Equal(t, 2, cr.RemainingInstallments)
	assertAmount(t, "6000", cr.PaidTotal)
	assertAmount(t, "2000", cr.DeferredTotal)
	assertAmount(t, "8000", cr.RemainingBalance)
	assert.NoError(t, cr.CheckBalance())
}

func TestScenario4_UnlockedAttendanceExcluded(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "30000", 22)
	f.setAttendance(t, "emp-2", 22, false)
	ctx := context.Background()

	res, err := f.svc.Compute(ctx, june, employee.Filter{})
	require.NoError(t, err)

	require.Len(t, res.Settlements, 1)
	assert.Equal(t, "emp-1", res.Settlements[0].EmployeeID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "emp-2", res.Skipped[0].EmployeeID)
	assert.Equal(t, payroll.ReasonAttendanceNotLocked, res.Skipped[0].Reason)
	assert.Contains(t, res.Skipped[0].Message, "attendance unlocked for employee emp-2")
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, 1, res.Totals.Employees)

	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)

	totals, err := f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Totals.Employees)
	assertAmount(t, "36400", totals.Totals.NetPay)
	assert.Equal(t, 1, totals.Excluded)
	assert.Equal(t, 1, totals.ExcludedByReason[payroll.ReasonAttendanceNotLocked])
	require.NotNil(t, totals.LastRunID)
}

func TestCompute_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.params.params[0].HardshipPct = d("7.5")
	f.params.params[0].SeniorityPctPerYear = d("1")
	f.params.params[0].MealPerDay = d("45.5")
	f.params.params[0].TransportPerDay = d("33.3")
	for i, base := range []string{"40000", "52000.55", "61234.56", "38000", "47123.10"} {
		f.addEmployee(t, "emp-"+string(rune('a'+i)), base, 15+i)
	}
	f.debts.advances["adv-1"] = debt.Advance{ID: "adv-1", EmployeeID: "emp-b", Amount: d("1234.56"), Due: june, Status: debt.StatusPending}

	first, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)
	f.svc.workers = 1
	second, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCompute_MonotonicInWorkedDays(t *testing.T) {
	f := newFixture(t)
	f.params.params[0].HardshipPct = d("10")
	f.params.params[0].MealPerDay = d("50")
	f.params.params[0].TransportPerDay = d("20")
	f.params.params[0].ProrateTax = true
	f.addEmployee(t, "emp-1", "90000", 0)

	prevBase, prevNet := decimal.Zero, decimal.NewFromInt(-1)
	for worked := 0; worked <= 22; worked++ {
		f.setAttendance(t, "emp-1", worked, true)
		res, err := f.svc.Compute(context.Background(), june, employee.Filter{})
		require.NoError(t, err)
		require.Len(t, res.Settlements, 1)
		s := res.Settlements[0]

		assert.False(t, s.ProratedBase.LessThan(prevBase), "prorated base decreased at %d days", worked)
		assert.False(t, s.NetPay.LessThan(prevNet), "net pay decreased at %d days", worked)
		prevBase, prevNet = s.ProratedBase, s.NetPay
	}
}

func TestCompute_ZeroWorkedDaysStillSettled(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 0)

	res, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Settlements, 1)
	s := res.Settlements[0]
	assert.True(t, s.HasFlag(payroll.FlagZeroWorkedDays))
	assertAmount(t, "0", s.ProratedBase)
	assertAmount(t, "0", s.NetPay)
}

func TestCompute_ConfigurationErrorsAreFatal(t *testing.T) {
	t.Run("income above top bracket", func(t *testing.T) {
		f := newFixture(t)
		f.params.tables[0].Brackets = f.params.tables[0].Brackets[:1]
		f.addEmployee(t, "emp-1", "30000", 22)
		f.addEmployee(t, "emp-2", "90000", 22)

		_, err := f.svc.Compute(context.Background(), june, employee.Filter{})
		require.Error(t, err)
		assert.ErrorIs(t, err, payroll.ErrNoBracketMatches)
		assert.True(t, payroll.IsConfiguration(err))
	})

	t.Run("no active parameters", func(t *testing.T) {
		f := newFixture(t)
		f.params.params[0].Active = false
		f.addEmployee(t, "emp-1", "30000", 22)

		_, err := f.svc.Compute(context.Background(), june, employee.Filter{})
		assert.ErrorIs(t, err, payroll.ErrNoActiveParameters)
		assert.True(t, payroll.IsConfiguration(err))
	})

	t.Run("persist writes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.params.tables[0].Brackets = f.params.tables[0].Brackets[:1]
		f.addEmployee(t, "emp-1", "90000", 22)

		_, err := f.svc.Persist(context.Background(), june, employee.Filter{}, "manager-1")
		assert.ErrorIs(t, err, payroll.ErrNoBracketMatches)
		assert.Empty(t, f.settlements.settlements)
		assert.Empty(t, f.settlements.runs)
	})
}

func TestCompute_PreconditionSkips(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-low", "500", 22)
	f.contracts.contracts = append(f.contracts.contracts, employee.Contract{
		EmployeeID: "emp-nobase", HireDate: f.contracts.contracts[0].HireDate,
		EmploymentStatus: employee.EmploymentStatusActive,
	})
	f.setAttendance(t, "emp-nobase", 22, true)

	res, err := f.svc.Compute(context.Background(), june, employee.Filter{EmployeeIDs: []string{"emp-1", "emp-low", "emp-nobase", "ghost"}})
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, sk := range res.Skipped {
		reasons[sk.EmployeeID] = sk.Reason
	}
	assert.Equal(t, payroll.ReasonBaseBelowMinimum, reasons["emp-low"])
	assert.Equal(t, payroll.ReasonContractMissing, reasons["emp-nobase"])
	assert.Equal(t, payroll.ReasonContractMissing, reasons["ghost"])
	assert.Len(t, res.Settlements, 1)
	assert.Equal(t, 3, res.Excluded)
	assert.Equal(t, 2, res.ExcludedByReason[payroll.ReasonContractMissing])
}

func TestCompute_ValidatedSkippedPaidRejected(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "40000", 22)
	f.addEmployee(t, "emp-3", "40000", 22)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-2", june, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(ctx, "emp-2", june, "owner-1")
	require.NoError(t, err)

	// Attendance changes after validation do not leak into locked settlements.
	f.setAttendance(t, "emp-1", 10, true)
	f.setAttendance(t, "emp-2", 10, true)

	res, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"emp-3"}, res.Succeeded)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, payroll.ReasonSettlementValidated, res.Skipped[0].Reason)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "emp-2", res.Failed[0].EmployeeID)
	assert.Equal(t, payroll.ReasonSettlementLocked, res.Failed[0].Reason)

	s1, err := f.svc.GetSettlement(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusValidated, s1.Status)
	assert.Equal(t, 22, s1.WorkedDays)
	s2, err := f.svc.GetSettlement(ctx, "emp-2", june)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusPaid, s2.Status)
	assert.Equal(t, 22, s2.WorkedDays)

	// Locked settlements are stored, so they count in the totals and not as excluded.
	totals, err := f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Totals.Employees)
	assert.Equal(t, 0, totals.Excluded)
}

func TestLifecycle_FailedTransitionsDoNotMutate(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	ctx := context.Background()
	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)

	snapshot := func() payroll.Settlement {
		s, err := f.svc.GetSettlement(ctx, "emp-1", june)
		require.NoError(t, err)
		return s
	}

	// draft
	before := snapshot()
	_, err = f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	assert.ErrorIs(t, err, payroll.ErrSettlementNotValidated)
	_, err = f.svc.RevertToDraft(ctx, "emp-1", june, "owner-1")
	assert.ErrorIs(t, err, payroll.ErrSettlementNotValidated)
	assert.Equal(t, before, snapshot())

	// validated
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)
	before = snapshot()
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	assert.ErrorIs(t, err, payroll.ErrSettlementAlreadyValidated)
	assert.Equal(t, before, snapshot())

	// revert and validate again
	reverted, err := f.svc.RevertToDraft(ctx, "emp-1", june, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusDraft, reverted.Status)
	assert.Nil(t, reverted.ValidatedAt)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)

	// paid
	_, err = f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	require.NoError(t, err)
	before = snapshot()
	for _, call := range []func() error{
		func() error { _, err := f.svc.Validate(ctx, "emp-1", june, "manager-1"); return err },
		func() error { _, err := f.svc.RevertToDraft(ctx, "emp-1", june, "owner-1"); return err },
		func() error { _, err := f.svc.MarkPaid(ctx, "emp-1", june, "owner-1"); return err },
	} {
		err := call()
		assert.ErrorIs(t, err, payroll.ErrSettlementLocked)
		assert.True(t, payroll.IsStateConflict(err))
	}
	assert.Equal(t, before, snapshot())

	_, err = f.svc.Validate(ctx, "nobody", june, "manager-1")
	assert.ErrorIs(t, err, payroll.ErrSettlementNotFound)
}

func TestMarkPaid_RejectsChangedObligation(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.debts.advances["adv-1"] = debt.Advance{ID: "adv-1", EmployeeID: "emp-1", Amount: d("5000"), Due: june, Status: debt.StatusPending}
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)

	adv := f.debts.advances["adv-1"]
	adv.Amount = d("6000")
	f.debts.advances["adv-1"] = adv

	_, err = f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	assert.ErrorIs(t, err, debt.ErrObligationChanged)
	assert.True(t, payroll.IsStateConflict(err))
}

func TestMarkPaid_DefersUnplannedObligations(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)

	// Granted after validation, so the settlement never planned for it.
	f.debts.advances["adv-late"] = debt.Advance{ID: "adv-late", EmployeeID: "emp-1", Amount: d("700"), Due: june, Status: debt.StatusPending}

	_, err = f.svc.MarkPaid(ctx, "emp-1", june, "owner-1")
	require.NoError(t, err)
	adv := f.debts.advances["adv-late"]
	assert.Equal(t, debt.StatusDeferred, adv.Status)
	assert.Equal(t, june.Next(), adv.Due)
	assertAmount(t, "0", adv.PaidAmount)
}

func TestPersist_FailureIsolatedPerEmployee(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "40000", 22)
	f.addEmployee(t, "emp-3", "40000", 22)
	f.settlements.failUpsert["emp-2"] = errors.New("connection reset")

	res, err := f.svc.Persist(context.Background(), june, employee.Filter{}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"emp-1", "emp-3"}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "emp-2", res.Failed[0].EmployeeID)
	assert.Equal(t, payroll.ReasonPersistence, res.Failed[0].Reason)
	assert.Contains(t, res.Failed[0].Message, "connection reset")
	assert.Equal(t, 2, res.Totals.Employees)

	require.Len(t, f.settlements.runs, 1)
	assert.Equal(t, 2, f.settlements.runs[0].Succeeded)
	assert.Equal(t, 1, f.settlements.runs[0].Failed)
}

func TestPersist_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	first, err := f.svc.GetSettlement(ctx, "emp-1", june)
	require.NoError(t, err)

	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	second, err := f.svc.GetSettlement(ctx, "emp-1", june)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.settlements.settlements, 1)
}

func TestPersist_RemovesStaleDraftOfSkippedEmployee(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	f.setAttendance(t, "emp-1", 22, false)

	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)

	_, err = f.svc.GetSettlement(ctx, "emp-1", june)
	assert.ErrorIs(t, err, payroll.ErrSettlementNotFound)
	totals, err := f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 0, totals.Totals.Employees)
	assert.Equal(t, 1, totals.Excluded)
}

func TestCompute_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "40000", 22)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Compute(ctx, june, employee.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Settlements)
}

func TestCompute_SortedByEmployee(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"emp-c", "emp-a", "emp-b"} {
		f.addEmployee(t, id, "40000", 22)
	}

	res, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Settlements, 3)
	assert.Equal(t, "emp-a", res.Settlements[0].EmployeeID)
	assert.Equal(t, "emp-b", res.Settlements[1].EmployeeID)
	assert.Equal(t, "emp-c", res.Settlements[2].EmployeeID)
	assertAmount(t, "109200", res.Totals.NetPay)
}

func TestVersions_ActivateBetweenRuns(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, "emp-1", june, "manager-1")
	require.NoError(t, err)

	next := baseParameters()
	next.SocialSecurityPct = d("10")
	created, err := f.svc.CreateParameters(ctx, payroll.CreateParametersRequest{Parameters: next, Activate: true}, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, created.Version)
	assert.True(t, created.Active)

	stored, err := f.svc.GetSettlement(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ParametersVersion)
	assertAmount(t, "9", stored.Parameters.SocialSecurityPct)

	_, err = f.svc.ActivateTaxTable(ctx, 42)
	assert.ErrorIs(t, err, payroll.ErrTaxTableNotFound)

	_, err = f.svc.CreateTaxTable(ctx, payroll.CreateTaxTableRequest{}, "owner-1")
	assert.Error(t, err)
}

func TestCompute_UndecodableAttendanceSkipsOnlyThatEmployee(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "40000", 22)
	v := f.attendance.vectors["emp-2"]
	_, v.DecodeErr = attendance.ParseDays("WW?")
	f.attendance.vectors["emp-2"] = v

	res, err := f.svc.Compute(context.Background(), june, employee.Filter{})
	require.NoError(t, err)

	require.Len(t, res.Settlements, 1)
	assert.Equal(t, "emp-1", res.Settlements[0].EmployeeID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "emp-2", res.Skipped[0].EmployeeID)
	assert.Equal(t, payroll.ReasonInvalidDayCode, res.Skipped[0].Reason)
	assert.Equal(t, 1, res.ExcludedByReason[payroll.ReasonInvalidDayCode])
}

func TestPeriodTotals_ExclusionsSurviveFilteredRuns(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "40000", 22)
	f.addEmployee(t, "emp-2", "30000", 22)
	f.setAttendance(t, "emp-2", 22, false)
	ctx := context.Background()

	_, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Persist(ctx, june, employee.Filter{EmployeeIDs: []string{"emp-1"}}, "manager-1")
	require.NoError(t, err)
	require.Len(t, f.settlements.runs, 2)
	assert.False(t, f.settlements.runs[0].Filtered)
	assert.True(t, f.settlements.runs[1].Filtered)

	totals, err := f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Totals.Employees)
	assert.Equal(t, 1, totals.Excluded)
	assert.Equal(t, 1, totals.ExcludedByReason[payroll.ReasonAttendanceNotLocked])
	assert.Equal(t, f.settlements.runs[1].ID, *totals.LastRunID)

	// Settling the excluded employee in a filtered run clears the exclusion.
	f.setAttendance(t, "emp-2", 22, true)
	_, err = f.svc.Persist(ctx, june, employee.Filter{EmployeeIDs: []string{"emp-2"}}, "manager-1")
	require.NoError(t, err)

	totals, err = f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Totals.Employees)
	assert.Equal(t, 0, totals.Excluded)
	assert.Empty(t, totals.ExcludedByReason)

	// A full run starts over.
	f.setAttendance(t, "emp-2", 22, false)
	_, err = f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	require.NoError(t, err)

	totals, err = f.svc.PeriodTotals(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Totals.Employees)
	assert.Equal(t, 1, totals.Excluded)
	assert.Equal(t, 1, totals.ExcludedByReason[payroll.ReasonAttendanceNotLocked])
}

// cancelOnMessage cancels a run when a log record with msg is emitted.
type cancelOnMessage struct {
	msg    string
	cancel context.CancelFunc
}

func (h *cancelOnMessage) Enabled(context.Context, slog.Level) bool { return true }

func (h *cancelOnMessage) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.cancel()
	}
	return nil
}

func (h *cancelOnMessage) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *cancelOnMessage) WithGroup(string) slog.Handler { return h }

func TestPersist_CancelledMidRunKeepsFinishedDrafts(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"emp-a", "emp-b", "emp-c"} {
		f.addEmployee(t, id, "40000", 22)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.workers = 1
	f.svc.logger = slog.New(&cancelOnMessage{msg: "employee computed", cancel: cancel})

	res, err := f.svc.Persist(ctx, june, employee.Filter{}, "manager-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Cancelled)
	assert.Equal(t, []string{"emp-a"}, res.Succeeded)
	assert.Equal(t, 1, res.Totals.Employees)

	stored, err := f.svc.GetSettlement(context.Background(), "emp-a", june)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusDraft, stored.Status)
	assertAmount(t, "36400", stored.NetPay)
	_, err = f.svc.GetSettlement(context.Background(), "emp-b", june)
	assert.ErrorIs(t, err, payroll.ErrSettlementNotFound)

	require.Len(t, f.settlements.runs, 1)
	run := f.settlements.runs[0]
	assert.True(t, run.Cancelled)
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, 1, run.Succeeded)
}
