// Package validation runs the data-quality battery over a fully built
// dimensional model and produces the report that gates warehouse loading.
package validation

import "fmt"

// CheckStatus classifies a single data-quality check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// Check categories. Each category is independent and skipped when its input
// table is empty.
const (
	CategoryRequiredField        = "REQUIRED_FIELD"
	CategoryUniqueness           = "UNIQUENESS"
	CategoryReferentialIntegrity = "REFERENTIAL_INTEGRITY"
	CategoryConsistency          = "CONSISTENCY"
	CategoryBusinessLogic        = "BUSINESS_LOGIC"
)

// Statistic categories.
const (
	StatCompleteness    = "COMPLETENESS"
	StatCardinality     = "CARDINALITY"
	StatTransactionType = "TRANSACTION_TYPE"
)

// DefaultThreshold is the pass percentage a check requires unless it supplies
// its own tolerance. The WARN band spans the 15 points below the threshold.
const (
	DefaultThreshold = 100
	warnBand         = 15
)

// Check is one discrete pass/warn/fail finding.
type Check struct {
	Category   string      `json:"category"`
	Name       string      `json:"check"`
	Status     CheckStatus `json:"status"`
	Passed     int         `json:"passed"`
	Total      int         `json:"total"`
	Percentage string      `json:"percentage"`
	Message    string      `json:"message,omitempty"`
}

// Statistic is an informational metric with no pass/fail semantics.
type Statistic struct {
	Category    string `json:"category"`
	Metric      string `json:"metric"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Report collects the checks and statistics produced by one validation run.
// The aggregate counts are always derived from the check list, never stored.
type Report struct {
	Checks     []Check     `json:"checks"`
	Statistics []Statistic `json:"statistics"`
}

func (r *Report) Total() int {
	return len(r.Checks)
}

func (r *Report) Passed() int {
	return r.countStatus(StatusPass)
}

func (r *Report) Warnings() int {
	return r.countStatus(StatusWarn)
}

func (r *Report) Failed() int {
	return r.countStatus(StatusFail)
}

func (r *Report) countStatus(status CheckStatus) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// FailedChecks returns the checks that failed, for surfacing in alerts.
func (r *Report) FailedChecks() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			failed = append(failed, c)
		}
	}
	return failed
}

// addCheck records a check result, classifying passed/total against the
// threshold. A zero total classifies as 0%.
func (r *Report) addCheck(category, name string, passed, total, threshold int, message string) {
	pct := 0.0
	if total > 0 {
		pct = float64(passed) / float64(total) * 100
	}

	status := StatusFail
	switch {
	case pct >= float64(threshold):
		status = StatusPass
	case pct >= float64(threshold-warnBand):
		status = StatusWarn
	}

	r.Checks = append(r.Checks, Check{
		Category:   category,
		Name:       name,
		Status:     status,
		Passed:     passed,
		Total:      total,
		Percentage: fmt.Sprintf("%.1f%%", pct),
		Message:    message,
	})
}

func (r *Report) addStat(category, metric, value string) {
	r.Statistics = append(r.Statistics, Statistic{
		Category: category,
		Metric:   metric,
		Value:    value,
	})
}

func ratioValue(part, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(part) / float64(total) * 100
	}
	return fmt.Sprintf("%d/%d (%.1f%%)", part, total, pct)
}
