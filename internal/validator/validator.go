package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Field   string
	Message string
}

func invalid(field, message string) ValidationResult {
	return ValidationResult{IsValid: false, Field: field, Message: message}
}

// ParseReading parses an operator-typed meter reading
func ParseReading(field, raw string) (float64, ValidationResult) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, invalid(field, fmt.Sprintf("%s is required", field))
	}
	// Operators paste values like "1,250" from spreadsheets. Any other comma is a
	// decimal separator or a typo and must not be dropped silently.
	if strings.Contains(value, ",") {
		if !thousandsGrouped.MatchString(value) {
			return 0, invalid(field, fmt.Sprintf("%s must be a number", field))
		}
		value = strings.ReplaceAll(value, ",", "")
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, invalid(field, fmt.Sprintf("%s must be a number", field))
	}
	if parsed < 0 {
		return parsed, invalid(field, fmt.Sprintf("%s cannot be negative", field))
	}
	return parsed, ValidationResult{IsValid: true}
}

// TaskFields are the follow-up task fields that must be present before submitting
type TaskFields struct {
	Title      string
	TypeID     int64
	AssignedTo int64
}

// ValidateTask reports the first missing required field
func ValidateTask(f TaskFields) ValidationResult {
	if strings.TrimSpace(f.Title) == "" {
		return invalid("title", "title is required")
	}
	if f.TypeID == 0 {
		return invalid("type", "task type is required")
	}
	if f.AssignedTo == 0 {
		return invalid("assignee", "assignee is required")
	}
	return ValidationResult{IsValid: true}
}
