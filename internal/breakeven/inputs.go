// Package breakeven computes the sales volume at which a brokerage branch's
// operating costs equal its net revenue after commissions and taxes.
package breakeven

import (
	"math"
	"strconv"

	"github.com/sells-group/brokerage-cli/internal/calcerr"
)

// Income tax bounds, inclusive.
const (
	MinIncomeTax = 0.07
	MaxIncomeTax = 0.12
)

// Inputs holds the cost and revenue assumptions for one branch.
// Currency fields are EGP; commission fields are EGP per 1,000,000 sold.
type Inputs struct {
	Agents      int `json:"agents" yaml:"agents"`
	TeamLeaders int `json:"team_leaders" yaml:"team_leaders"`

	Rent                 float64 `json:"rent" yaml:"rent"`
	Salary               float64 `json:"salary" yaml:"salary"`
	TeamLeaderShare      float64 `json:"team_leader_share" yaml:"team_leader_share"`
	Others               float64 `json:"others" yaml:"others"`
	Marketing            float64 `json:"marketing" yaml:"marketing"`
	SIM                  float64 `json:"sim" yaml:"sim"`
	FranchiseOwnerSalary float64 `json:"franchise_owner_salary" yaml:"franchise_owner_salary"`

	GrossRate float64 `json:"gross_rate" yaml:"gross_rate"`

	AgentCommPer1M float64 `json:"agent_comm_per_1m" yaml:"agent_comm_per_1m"`
	TLCommPer1M    float64 `json:"tl_comm_per_1m" yaml:"tl_comm_per_1m"`

	Withholding float64 `json:"withholding" yaml:"withholding"`
	VAT         float64 `json:"vat" yaml:"vat"`
	IncomeTax   float64 `json:"income_tax" yaml:"income_tax"`
}

type field struct {
	name  string
	value float64
}

// Validate returns a *calcerr.ValidationError for the first violated bound.
// Fields are checked in a fixed order so the reported field is deterministic.
func Validate(in Inputs) error {
	if in.Agents < 1 {
		return calcerr.Invalid("agents", "must be at least 1")
	}
	if in.TeamLeaders < 0 {
		return calcerr.Invalid("team_leaders", "must be >= 0")
	}

	costs := []field{
		{"rent", in.Rent},
		{"salary", in.Salary},
		{"team_leader_share", in.TeamLeaderShare},
		{"others", in.Others},
		{"marketing", in.Marketing},
		{"sim", in.SIM},
		{"franchise_owner_salary", in.FranchiseOwnerSalary},
	}
	if err := checkNonNegative(costs); err != nil {
		return err
	}

	if err := checkRange(field{"gross_rate", in.GrossRate}, 0, 1); err != nil {
		return err
	}

	commissions := []field{
		{"agent_comm_per_1m", in.AgentCommPer1M},
		{"tl_comm_per_1m", in.TLCommPer1M},
	}
	if err := checkNonNegative(commissions); err != nil {
		return err
	}

	for _, f := range []field{{"withholding", in.Withholding}, {"vat", in.VAT}} {
		if err := checkRange(f, 0, 1); err != nil {
			return err
		}
	}

	return checkRange(field{"income_tax", in.IncomeTax}, MinIncomeTax, MaxIncomeTax)
}

func checkNonNegative(fields []field) error {
	for _, f := range fields {
		if !finite(f.value) {
			return calcerr.Invalid(f.name, "must be a finite number")
		}
		if f.value < 0 {
			return calcerr.Invalid(f.name, "must be >= 0")
		}
	}
	return nil
}

func checkRange(f field, lo, hi float64) error {
	if !finite(f.value) {
		return calcerr.Invalid(f.name, "must be a finite number")
	}
	if f.value < lo || f.value > hi {
		return calcerr.Invalid(f.name, "must be between "+formatBound(lo)+" and "+formatBound(hi))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
