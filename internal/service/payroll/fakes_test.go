package payroll

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// ========== TX ==========

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ========== CONTRACTS ==========

type fakeContracts struct {
	contracts []employee.Contract
}

func (f *fakeContracts) ListContracts(ctx context.Context, filter employee.Filter) ([]employee.Contract, error) {
	want := make(map[string]bool, len(filter.EmployeeIDs))
	for _, id := range filter.EmployeeIDs {
		want[id] = true
	}
	var out []employee.Contract
	for _, c := range f.contracts {
		if len(want) > 0 && !want[c.EmployeeID] {
			continue
		}
		if filter.Position != "" && c.Position != filter.Position {
			continue
		}
		if !filter.IncludeInactive && !c.IsActive() {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (f *fakeContracts) GetContract(ctx context.Context, employeeID string) (employee.Contract, error) {
	for _, c := range f.contracts {
		if c.EmployeeID == employeeID {
			return c, nil
		}
	}
	return employee.Contract{}, employee.ErrEmployeeNotFound
}

// ========== ATTENDANCE ==========

type fakeAttendance struct {
	vectors map[string]attendance.Vector
}

func (f *fakeAttendance) GetVectors(ctx context.Context, p period.Period, employeeIDs []string) (map[string]attendance.Vector, error) {
	out := make(map[string]attendance.Vector)
	for _, id := range employeeIDs {
		if v, ok := f.vectors[id]; ok && v.Period == p {
			out[id] = v
		}
	}
	return out, nil
}

// ========== DEBT ==========

type fakeDebt struct {
	mu           sync.Mutex
	advances     map[string]debt.Advance
	credits      map[string]debt.Credit
	installments map[string]debt.Installment
}

func newFakeDebt() *fakeDebt {
	return &fakeDebt{
		advances:     map[string]debt.Advance{},
		credits:      map[string]debt.Credit{},
		installments: map[string]debt.Installment{},
	}
}

func (f *fakeDebt) ListDue(ctx context.Context, p period.Period, employeeIDs []string) (map[string][]debt.Obligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	want := make(map[string]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		want[id] = true
	}
	out := make(map[string][]debt.Obligation)
	for _, a := range f.advances {
		if want[a.EmployeeID] && a.Status.Open() && a.Due == p {
			out[a.EmployeeID] = append(out[a.EmployeeID], a.Obligation())
		}
	}
	for _, i := range f.installments {
		if !want[i.EmployeeID] || !i.Status.Open() || i.Due != p {
			continue
		}
		if f.credits[i.CreditID].Settled() {
			continue
		}
		out[i.EmployeeID] = append(out[i.EmployeeID], i.Obligation())
	}
	return out, nil
}

func (f *fakeDebt) GetAdvance(ctx context.Context, id string) (debt.Advance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.advances[id]
	if !ok {
		return debt.Advance{}, debt.ErrAdvanceNotFound
	}
	return a, nil
}

func (f *fakeDebt) GetCredit(ctx context.Context, id string) (debt.Credit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.credits[id]
	if !ok {
		return debt.Credit{}, debt.ErrCreditNotFound
	}
	return c, nil
}

func (f *fakeDebt) GetInstallment(ctx context.Context, id string) (debt.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.installments[id]
	if !ok {
		return debt.Installment{}, debt.ErrInstallmentNotFound
	}
	return i, nil
}

func (f *fakeDebt) ListInstallments(ctx context.Context, creditID string) ([]debt.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []debt.Installment
	for _, i := range f.installments {
		if i.CreditID == creditID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Sequence < out[b].Sequence })
	return out, nil
}

func (f *fakeDebt) CreateAdvance(ctx context.Context, a debt.Advance) (debt.Advance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == "" {
		a.ID = fmt.Sprintf("adv-%d", len(f.advances)+1)
	}
	f.advances[a.ID] = a
	return a, nil
}

func (f *fakeDebt) CreateCredit(ctx context.Context, c debt.Credit, installments []debt.Installment) (debt.Credit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("cr-%d", len(f.credits)+1)
	}
	f.credits[c.ID] = c
	for _, i := range installments {
		i.CreditID = c.ID
		if i.ID == "" {
			i.ID = fmt.Sprintf("%s-inst-%d", c.ID, i.Sequence)
		}
		f.installments[i.ID] = i
	}
	return c, nil
}

func (f *fakeDebt) UpdateAdvance(ctx context.Context, a debt.Advance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances[a.ID] = a
	return nil
}

func (f *fakeDebt) UpdateCredit(ctx context.Context, c debt.Credit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[c.ID] = c
	return nil
}

func (f *fakeDebt) UpdateInstallment(ctx context.Context, i debt.Installment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installments[i.ID] = i
	return nil
}

// ========== PARAMETERS ==========

type fakeParameters struct {
	params []payroll.Parameters
	tables []payroll.TaxTable
}

func (f *fakeParameters) GetActiveParameters(ctx context.Context) (payroll.Parameters, error) {
	for _, p := range f.params {
		if p.Active {
			return p, nil
		}
	}
	return payroll.Parameters{}, payroll.ErrNoActiveParameters
}

func (f *fakeParameters) GetParameters(ctx context.Context, version int) (payroll.Parameters, error) {
	for _, p := range f.params {
		if p.Version == version {
			return p, nil
		}
	}
	return payroll.Parameters{}, payroll.ErrParametersNotFound
}

func (f *fakeParameters) ListParameters(ctx context.Context) ([]payroll.Parameters, error) {
	return f.params, nil
}

func (f *fakeParameters) CreateParameters(ctx context.Context, p payroll.Parameters) (payroll.Parameters, error) {
	p.Version = len(f.params) + 1
	f.params = append(f.params, p)
	return p, nil
}

func (f *fakeParameters) ActivateParameters(ctx context.Context, version int, at time.Time) error {
	found := false
	for i := range f.params {
		f.params[i].Active = f.params[i].Version == version
		if f.params[i].Active {
			found = true
			f.params[i].ActivatedAt = &at
		}
	}
	if !found {
		return payroll.ErrParametersNotFound
	}
	return nil
}

func (f *fakeParameters) GetActiveTaxTable(ctx context.Context) (payroll.TaxTable, error) {
	for _, t := range f.tables {
		if t.Active {
			return t, nil
		}
	}
	return payroll.TaxTable{}, payroll.ErrNoActiveTaxTable
}

func (f *fakeParameters) GetTaxTable(ctx context.Context, version int) (payroll.TaxTable, error) {
	for _, t := range f.tables {
		if t.Version == version {
			return t, nil
		}
	}
	return payroll.TaxTable{}, payroll.ErrTaxTableNotFound
}

func (f *fakeParameters) ListTaxTables(ctx context.Context) ([]payroll.TaxTable, error) {
	return f.tables, nil
}

func (f *fakeParameters) CreateTaxTable(ctx context.Context, t payroll.TaxTable) (payroll.TaxTable, error) {
	t.Version = len(f.tables) + 1
	f.tables = append(f.tables, t)
	return t, nil
}

func (f *fakeParameters) ActivateTaxTable(ctx context.Context, version int, at time.Time) error {
	found := false
	for i := range f.tables {
		f.tables[i].Active = f.tables[i].Version == version
		if f.tables[i].Active {
			found = true
			f.tables[i].ActivatedAt = &at
		}
	}
	if !found {
		return payroll.ErrTaxTableNotFound
	}
	return nil
}

// ========== SETTLEMENTS ==========

type fakeSettlements struct {
	mu          sync.Mutex
	settlements map[string]payroll.Settlement
	runs        []payroll.Run
	failUpsert  map[string]error
}

func newFakeSettlements() *fakeSettlements {
	return &fakeSettlements{
		settlements: map[string]payroll.Settlement{},
		failUpsert:  map[string]error{},
	}
}

func settlementKey(employeeID string, p period.Period) string {
	return employeeID + "/" + p.String()
}

func (f *fakeSettlements) Get(ctx context.Context, employeeID string, p period.Period) (payroll.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settlements[settlementKey(employeeID, p)]
	if !ok {
		return payroll.Settlement{}, payroll.ErrSettlementNotFound
	}
	return s, nil
}

func (f *fakeSettlements) GetForUpdate(ctx context.Context, employeeID string, p period.Period) (payroll.Settlement, error) {
	return f.Get(ctx, employeeID, p)
}

func (f *fakeSettlements) ListByPeriod(ctx context.Context, p period.Period, status *payroll.Status) ([]payroll.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payroll.Settlement
	for _, s := range f.settlements {
		if s.Period != p || (status != nil && s.Status != *status) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (f *fakeSettlements) StatusesByPeriod(ctx context.Context, p period.Period) (map[string]payroll.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]payroll.Status)
	for _, s := range f.settlements {
		if s.Period == p {
			out[s.EmployeeID] = s.Status
		}
	}
	return out, nil
}

func (f *fakeSettlements) UpsertDraft(ctx context.Context, s payroll.Settlement) (payroll.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpsert[s.EmployeeID]; err != nil {
		return payroll.Settlement{}, err
	}
	key := settlementKey(s.EmployeeID, s.Period)
	if existing, ok := f.settlements[key]; ok && existing.Status != payroll.StatusDraft {
		return payroll.Settlement{}, payroll.ErrSettlementLocked
	}
	s.ID = key
	s.Status = payroll.StatusDraft
	f.settlements[key] = s
	return s, nil
}

func (f *fakeSettlements) UpdateStatus(ctx context.Context, s payroll.Settlement, from payroll.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := settlementKey(s.EmployeeID, s.Period)
	existing, ok := f.settlements[key]
	if !ok {
		return payroll.ErrSettlementNotFound
	}
	if existing.Status != from {
		return payroll.ErrSettlementStale
	}
	f.settlements[key] = s
	return nil
}

func (f *fakeSettlements) DeleteDraft(ctx context.Context, employeeID string, p period.Period) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := settlementKey(employeeID, p)
	if s, ok := f.settlements[key]; ok && s.Status == payroll.StatusDraft {
		delete(f.settlements, key)
	}
	return nil
}

func (f *fakeSettlements) SaveRun(ctx context.Context, run payroll.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeSettlements) ListRuns(ctx context.Context, p period.Period) ([]payroll.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payroll.Run
	for _, run := range f.runs {
		if run.Period == p {
			out = append(out, run)
		}
	}
	return out, nil
}

// ========== FIXTURE ==========

var june = period.Period{Year: 2024, Month: 6}

type fixture struct {
	svc         *PayrollServiceImpl
	contracts   *fakeContracts
	attendance  *fakeAttendance
	debts       *fakeDebt
	params      *fakeParameters
	settlements *fakeSettlements
}

func baseParameters() payroll.Parameters {
	return payroll.Parameters{
		Version:             1,
		SocialSecurityPct:   d("9"),
		StandardWorkingDays: 22,
		StandardHoursPerDay: d("8"),
		OvertimeMultiplier:  d("1.33"),
		CalculateOvertime:   true,
		MinimumWage:         d("1000"),
		Active:              true,
	}
}

// baseTaxTable exempts taxable income up to 40,000 and taxes 20% above it.
func baseTaxTable() payroll.TaxTable {
	return payroll.TaxTable{
		Version: 1,
		Active:  true,
		Brackets: []payroll.TaxBracket{
			{UpperBound: d("40000"), Kind: payroll.BracketFlat, Amount: d("0")},
			{UpperBound: d("1000000"), Kind: payroll.BracketMarginal, Amount: d("0"), Rate: d("20")},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		contracts:   &fakeContracts{},
		attendance:  &fakeAttendance{vectors: map[string]attendance.Vector{}},
		debts:       newFakeDebt(),
		params:      &fakeParameters{params: []payroll.Parameters{baseParameters()}, tables: []payroll.TaxTable{baseTaxTable()}},
		settlements: newFakeSettlements(),
	}
	svc := NewPayrollService(fakeTx{}, f.contracts, f.attendance, f.debts, f.params, f.settlements, 4, nil)
	f.svc = svc.(*PayrollServiceImpl)
	f.svc.now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) addEmployee(t *testing.T, id, base string, worked int) {
	t.Helper()
	f.contracts.contracts = append(f.contracts.contracts, employee.Contract{
		EmployeeID:       id,
		FullName:         "Employee " + id,
		BaseSalary:       dp(base),
		HireDate:         time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EmploymentStatus: employee.EmploymentStatusActive,
	})
	f.setAttendance(t, id, worked, true)
}

// setAttendance records worked days, absences up to 22 working days and the
// remaining 8 days of June as rest.
func (f *fixture) setAttendance(t *testing.T, id string, worked int, locked bool) {
	t.Helper()
	codes := strings.Repeat("W", worked) + strings.Repeat("A", 22-worked) + strings.Repeat("R", 8)
	days, err := attendance.ParseDays(codes)
	require.NoError(t, err)
	f.attendance.vectors[id] = attendance.Vector{
		EmployeeID:        id,
		Period:            june,
		Days:              days,
		Locked:            locked,
		SupplementalDays:  decimal.Zero,
		SupplementalHours: decimal.Zero,
	}
}
