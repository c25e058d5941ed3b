package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"expense-tracker-api/internal/model"
)

const passwordSpecialChars = "!@#$%^&*"

// emailPattern is a shape heuristic, not RFC 5322. It rejects some valid
// addresses (quoted local parts, long TLDs) and never checks the domain exists.
var emailPattern = regexp.MustCompile(`^[\w-]+(\.[\w-]+)*@([\w-]+\.)+[a-zA-Z]{2,7}$`)

// passwordLineBreaks end the part of a password the rules look at.
const passwordLineBreaks = "\n\r\u2028\u2029"

// ValidatePassword requires an uppercase letter, one of !@#$%^&* and at least
// 8 UTF-16 code units, all before the first line break.
func ValidatePassword(candidate string) bool {
	if i := strings.IndexAny(candidate, passwordLineBreaks); i >= 0 {
		candidate = candidate[:i]
	}
	if len(utf16.Encode([]rune(candidate))) < 8 {
		return false
	}
	hasUpper := strings.IndexFunc(candidate, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
	return hasUpper && strings.ContainsAny(candidate, passwordSpecialChars)
}

func ValidateEmail(candidate string) bool {
	return emailPattern.MatchString(candidate)
}

// ValidationError is a client-correctable problem with submitted data.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func requiredField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate accepts a calendar date or a full timestamp. Bare dates are UTC midnight.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, requiredField("date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("date %q is not a valid date", raw)}
}

// validateExpense checks a fully assembled record before it is written.
func validateExpense(e *model.Expense) error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return requiredField("title")
	case strings.TrimSpace(e.Category) == "":
		return requiredField("category")
	case e.Date.IsZero():
		return requiredField("date")
	case e.UserID == "":
		return requiredField("userId")
	}
	return nil
}
