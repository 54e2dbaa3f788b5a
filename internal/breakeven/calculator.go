package breakeven

import (
	"github.com/sells-group/brokerage-cli/internal/calcerr"
)

// Per is the sales volume that commission and gross figures are quoted against.
const Per = 1_000_000

// Step is one labeled intermediate value, kept for audit and display only.
type Step struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Formula string  `json:"formula"`
	Value   float64 `json:"value"`
}

// Result is the derived break-even model for one set of Inputs.
type Result struct {
	CostPerSeat           float64 `json:"cost_per_seat"`
	TotalOperatingCost    float64 `json:"total_operating_cost"`
	GrossPer1M            float64 `json:"gross_per_1m"`
	CommissionsPer1M      float64 `json:"commissions_per_1m"`
	TaxesPer1M            float64 `json:"taxes_per_1m"`
	NetRevPer1M           float64 `json:"net_rev_per_1m"`
	BreakEvenSalesEGP     float64 `json:"break_even_sales_egp"`
	BreakEvenSalesMillion float64 `json:"break_even_sales_million"`
	Steps                 []Step  `json:"steps"`
}

// Compute validates in and derives the break-even sales volume.
//
// It returns a *calcerr.ValidationError for out-of-bound inputs and a
// *calcerr.DegenerateModelError when net revenue per 1,000,000 sold is <= 0.
// Costs or a break-even volume that overflow float64 are a
// *calcerr.ValidationError naming the quantity. A result is never returned
// alongside an error.
func Compute(in Inputs) (*Result, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	gross := Per * in.GrossRate
	commissions := in.AgentCommPer1M + in.TLCommPer1M
	taxes := gross * (in.Withholding + in.VAT + in.IncomeTax)
	net := gross - commissions - taxes

	costPerSeat := in.Rent + in.Salary + in.TeamLeaderShare + in.Others + in.Marketing + in.SIM
	totalCost := costPerSeat*float64(in.Agents) + in.FranchiseOwnerSalary

	if !finite(costPerSeat) {
		return nil, calcerr.Invalid("cost_per_seat", "is too large to compute")
	}
	if !finite(totalCost) {
		return nil, calcerr.Invalid("total_operating_cost", "is too large to compute")
	}
	if net <= 0 {
		return nil, &calcerr.DegenerateModelError{NetRevPer1M: net}
	}

	salesEGP := totalCost / (net / Per)
	salesMillion := salesEGP / Per
	if !finite(salesEGP) {
		return nil, calcerr.Invalid("break_even_sales_egp", "is too large to compute: net revenue per 1,000,000 sold is too small for the operating cost")
	}

	return &Result{
		CostPerSeat:           costPerSeat,
		TotalOperatingCost:    totalCost,
		GrossPer1M:            gross,
		CommissionsPer1M:      commissions,
		TaxesPer1M:            taxes,
		NetRevPer1M:           net,
		BreakEvenSalesEGP:     salesEGP,
		BreakEvenSalesMillion: salesMillion,
		Steps: []Step{
			{"gross_per_1m", "Gross revenue per 1M sold", "1,000,000 × gross_rate", gross},
			{"commissions_per_1m", "Commissions per 1M sold", "agent_comm_per_1m + tl_comm_per_1m", commissions},
			{"taxes_per_1m", "Taxes per 1M sold", "gross_per_1m × (withholding + vat + income_tax)", taxes},
			{"net_rev_per_1m", "Net revenue per 1M sold", "gross_per_1m − commissions_per_1m − taxes_per_1m", net},
			{"cost_per_seat", "Cost per seat", "rent + salary + team_leader_share + others + marketing + sim", costPerSeat},
			{"total_operating_cost", "Total operating cost", "cost_per_seat × agents + franchise_owner_salary", totalCost},
			{"break_even_sales_egp", "Break-even sales (EGP)", "total_operating_cost ÷ (net_rev_per_1m ÷ 1,000,000)", salesEGP},
			{"break_even_sales_million", "Break-even sales (M EGP)", "break_even_sales_egp ÷ 1,000,000", salesMillion},
		},
	}, nil
}
