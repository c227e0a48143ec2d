package pipeline

import (
	"math"

	"github.com/oonisim/ml-credit-risk/internal/transform"
)

// Column names of the German credit dataset used by the reference deployment
const (
	ColumnAge             = "Age"
	ColumnSex             = "Sex"
	ColumnJob             = "Job"
	ColumnHousing         = "Housing"
	ColumnSavingAccounts  = "Saving accounts"
	ColumnCheckingAccount = "Checking account"
	ColumnCreditAmount    = "Credit amount"
	ColumnDuration        = "Duration"
	ColumnPurpose         = "Purpose"
	ColumnRisk            = "Risk"

	ColumnGeneration = "Generation"
	ColumnAmount     = "Amount"
)

// GenerationBins groups applicant age into generations
func GenerationBins() transform.DiscretizeConfig {
	return transform.DiscretizeConfig{
		Source: ColumnAge,
		Target: ColumnGeneration,
		Bins: transform.BinSpec{
			Boundaries: []float64{18, 25, 35, 60, 100},
			Labels:     []string{"Student", "Young", "Adult", "Senior"},
		},
	}
}

// AmountBins groups the credit amount into 5K bands, the last one unbounded
func AmountBins() transform.DiscretizeConfig {
	return transform.DiscretizeConfig{
		Source: ColumnCreditAmount,
		Target: ColumnAmount,
		Bins: transform.BinSpec{
			Boundaries: []float64{0, 5000, 10000, 15000, 20000, math.Inf(1)},
			Labels:     []string{"<5K", "5-10K", "10-15K", "15-20K", "20K+"},
		},
	}
}

// CreditRiskDefaults returns the reference deployment: generation and amount
// bins, no_inf imputation of the account columns, every categorical column
// encoded, and Risk as the pass-through target
func CreditRiskDefaults() Config {
	return Config{
		Targets: []string{ColumnRisk},
		Bins:    []transform.DiscretizeConfig{GenerationBins(), AmountBins()},
		Impute: transform.ImputeConfig{
			Columns:  []string{ColumnSavingAccounts, ColumnCheckingAccount},
			Sentinel: transform.DefaultSentinel,
		},
		Encode: transform.EncodeConfig{EmptyPolicy: transform.EmptyReject},
		Rename: map[string]string{
			ColumnDuration: "duration",
			ColumnRisk:     "risk",
		},
	}
}

// CreditRiskRoles returns the column roles of the raw German credit dataset
func CreditRiskRoles() transform.Roles {
	return transform.MustRoles(
		[]string{ColumnAge, ColumnCreditAmount, ColumnDuration},
		[]string{ColumnSex, ColumnJob, ColumnHousing, ColumnSavingAccounts, ColumnCheckingAccount, ColumnPurpose},
	)
}
