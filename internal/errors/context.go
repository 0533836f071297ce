package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorContext carries the what/where/how-to-fix details shown to the user
type ErrorContext struct {
	Operation   string                 // The operation that failed
	Component   string                 // The component that failed
	Details     map[string]interface{} // Additional details about the error
	Suggestions []string               // Actionable suggestions for the user
	Recoverable bool                   // Whether the session can continue
}

// Format renders the context as an indented block. Details are sorted by key
// so the output is stable.
func (ec *ErrorContext) Format() string {
	var sb strings.Builder

	switch {
	case ec.Operation != "" && ec.Component != "":
		sb.WriteString(fmt.Sprintf("\nWhat happened:\n  %s failed in %s.\n", ec.Operation, ec.Component))
	case ec.Operation != "":
		sb.WriteString(fmt.Sprintf("\nWhat happened:\n  %s failed.\n", ec.Operation))
	case ec.Component != "":
		sb.WriteString(fmt.Sprintf("\nWhat happened:\n  Failure in %s.\n", ec.Component))
	}

	if len(ec.Details) > 0 {
		keys := make([]string, 0, len(ec.Details))
		for key := range ec.Details {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, key := range keys {
			sb.WriteString(fmt.Sprintf("  - %s: %v\n", key, ec.Details[key]))
		}
	}

	if len(ec.Suggestions) > 0 {
		sb.WriteString("\nWhat you can do:\n")
		for i, suggestion := range ec.Suggestions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion))
		}
	}

	if ec.Recoverable {
		sb.WriteString("\nThe session can continue.\n")
	}

	return sb.String()
}
