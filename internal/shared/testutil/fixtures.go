package testutil

import (
	"testing"

	"github.com/oonisim/ml-credit-risk/internal/table"
)

// CreditRecord is one applicant of the German credit dataset.
// Empty strings are missing values.
type CreditRecord struct {
	Age             float64
	Sex             string
	Job             float64
	Housing         string
	SavingAccounts  string
	CheckingAccount string
	CreditAmount    float64
	Duration        float64
	Purpose         string
	Risk            string
}

// GermanCreditRecords returns the first rows of the German credit dataset
func GermanCreditRecords() []CreditRecord {
	return []CreditRecord{
		{67, "male", 2, "own", "", "little", 1169, 6, "radio/TV", "good"},
		{22, "female", 2, "own", "little", "moderate", 5951, 48, "radio/TV", "bad"},
		{49, "male", 1, "own", "little", "", 2096, 12, "education", "good"},
		{45, "male", 2, "free", "little", "little", 7882, 42, "furniture/equipment", "good"},
		{53, "male", 2, "free", "little", "little", 4870, 24, "car", "bad"},
		{35, "male", 1, "free", "", "", 9055, 36, "education", "good"},
		{53, "male", 2, "own", "quite rich", "", 2835, 24, "furniture/equipment", "good"},
		{35, "male", 3, "rent", "little", "moderate", 6948, 36, "car", "good"},
	}
}

// GermanCreditTable builds a table from records with the dataset's column
// names and an unnamed leading index column, as exported by pandas
func GermanCreditTable(t *testing.T, records []CreditRecord) *table.Table {
	t.Helper()

	n := len(records)
	cols := []table.Column{
		{Name: "Unnamed: 0", Values: make([]table.Value, n)},
		{Name: "Age", Values: make([]table.Value, n)},
		{Name: "Sex", Values: make([]table.Value, n)},
		{Name: "Job", Values: make([]table.Value, n)},
		{Name: "Housing", Values: make([]table.Value, n)},
		{Name: "Saving accounts", Values: make([]table.Value, n)},
		{Name: "Checking account", Values: make([]table.Value, n)},
		{Name: "Credit amount", Values: make([]table.Value, n)},
		{Name: "Duration", Values: make([]table.Value, n)},
		{Name: "Purpose", Values: make([]table.Value, n)},
		{Name: "Risk", Values: make([]table.Value, n)},
	}
	for i, r := range records {
		cols[0].Values[i] = table.Number(float64(i))
		cols[1].Values[i] = table.Number(r.Age)
		cols[2].Values[i] = text(r.Sex)
		cols[3].Values[i] = table.Number(r.Job)
		cols[4].Values[i] = text(r.Housing)
		cols[5].Values[i] = text(r.SavingAccounts)
		cols[6].Values[i] = text(r.CheckingAccount)
		cols[7].Values[i] = table.Number(r.CreditAmount)
		cols[8].Values[i] = table.Number(r.Duration)
		cols[9].Values[i] = text(r.Purpose)
		cols[10].Values[i] = text(r.Risk)
	}

	tbl, err := table.New(cols...)
	if err != nil {
		t.Fatalf("failed to build credit table: %v", err)
	}
	return tbl
}

// GermanCredit returns the fixture table of GermanCreditRecords
func GermanCredit(t *testing.T) *table.Table {
	t.Helper()
	return GermanCreditTable(t, GermanCreditRecords())
}

func text(s string) table.Value {
	if s == "" {
		return table.Missing()
	}
	return table.Text(s)
}
