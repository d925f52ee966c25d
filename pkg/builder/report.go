// Package builder implements the fluent agent builder and its config
// validator (§4.7). Build() never panics; it always returns a Report
// describing every field it looked at, alongside an error only when
// the report contains at least one Error-level entry.
package builder

import "fmt"

// Report is a structured validation outcome: errors block Build(),
// warnings do not, successes record what passed — grounded on the
// original implementation's ValidationReport (lumosai_core
// agent::config_validator), reimplemented in Go idiom.
type Report struct {
	Errors    []string
	Warnings  []string
	Successes []string
}

func (r *Report) addError(format string, args ...any)   { r.Errors = append(r.Errors, fmt.Sprintf(format, args...)) }
func (r *Report) addWarning(format string, args ...any) { r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...)) }
func (r *Report) addSuccess(format string, args ...any) { r.Successes = append(r.Successes, fmt.Sprintf(format, args...)) }

// IsValid reports whether the configuration has no blocking errors.
func (r *Report) IsValid() bool { return len(r.Errors) == 0 }

// Summary renders a one-line human-readable count, matching the
// original's validate_with_report().summary().
func (r *Report) Summary() string {
	return fmt.Sprintf("validation report: %d errors, %d warnings, %d successes",
		len(r.Errors), len(r.Warnings), len(r.Successes))
}
