package procedure

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateIdentifier accepts a bare SQL identifier: a letter or '_'
// followed by letters, digits or '_'.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	for i, r := range name {
		if i == 0 {
			if !(unicode.IsLetter(r) || r == '_') {
				return fmt.Errorf("identifier %q must start with letter/_", name)
			}
		} else {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
				return fmt.Errorf("identifier %q has invalid char", name)
			}
		}
	}
	return nil
}

// ValidateProcedureName accepts name or schema.name.
func ValidateProcedureName(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("procedure %q: expected name or schema.name", name)
	}
	for _, p := range parts {
		if err := ValidateIdentifier(p); err != nil {
			return fmt.Errorf("procedure %q: %w", name, err)
		}
	}
	return nil
}

func ValidateFields(fields []string) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := ValidateIdentifier(f); err != nil {
			return fmt.Errorf("field: %w", err)
		}
		if seen[f] {
			return fmt.Errorf("field %q declared twice", f)
		}
		seen[f] = true
	}
	return nil
}
