package mutation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/localnerve/jam-build-crm/internal/types"
)

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// Rule checks one field value and returns a message, or "" when the value passes.
type Rule func(label, value string) string

// Schema is an ordered list of field checks. Validate reports every failure, not only the
// first.
type Schema struct {
	checks []func() string
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{}
}

// Field adds rules for one value. Rules after Required are skipped when the value is empty.
func (s *Schema) Field(label, value string, rules ...Rule) *Schema {
	value = strings.TrimSpace(value)
	for _, rule := range rules {
		rule := rule
		s.checks = append(s.checks, func() string { return rule(label, value) })
	}
	return s
}

// Check adds a precomputed condition with its message.
func (s *Schema) Check(ok bool, message string) *Schema {
	s.checks = append(s.checks, func() string {
		if ok {
			return ""
		}
		return message
	})
	return s
}

// Validate runs every check and returns the collected messages.
func (s *Schema) Validate() []string {
	var msgs []string
	for _, check := range s.checks {
		if msg := check(); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Required fails an empty value with message, or "<Label> is required" when message is "".
func Required(message string) Rule {
	return func(label, value string) string {
		if value != "" {
			return ""
		}
		if message != "" {
			return message
		}
		return fmt.Sprintf("%s is required", capitalize(label))
	}
}

// Length bounds the rune count of a non empty value.
func Length(min, max int) Rule {
	return func(label, value string) string {
		if value == "" {
			return ""
		}
		n := utf8.RuneCountInString(value)
		if min > 0 && n < min {
			return fmt.Sprintf("Minimum characters required for %s is %d", label, min)
		}
		if max > 0 && n > max {
			return fmt.Sprintf("Maximum characters required for %s is %d", label, max)
		}
		return ""
	}
}

// Email checks the address format of a non empty value.
func Email() Rule {
	return func(label, value string) string {
		if value == "" || emailPattern.MatchString(value) {
			return ""
		}
		return fmt.Sprintf("Your %s format should be __@__.__, instead got %s", label, value)
	}
}

// OneOf restricts a non empty value to the listed values.
func OneOf(values ...string) Rule {
	return func(label, value string) string {
		if value == "" {
			return ""
		}
		for _, v := range values {
			if v == value {
				return ""
			}
		}
		return fmt.Sprintf("%s is not supported", value)
	}
}

// ObjectID requires a non empty value to be a 24 hex identifier.
func ObjectID() Rule {
	return func(label, value string) string {
		if value == "" || types.IsValidObjectID(value) {
			return ""
		}
		return fmt.Sprintf("%s is invalid", capitalize(label))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
