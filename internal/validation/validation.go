// Package validation checks inbound payloads against declarative field rules.
// It performs no I/O and never mutates the payload.
package validation

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
)

// Kind is the expected type of a field value.
type Kind int

const (
	KindString Kind = iota
	// KindStrings accepts a list of strings or a single comma-joined string.
	KindStrings
	KindFile
)

// Failure reasons reported per field.
const (
	ReasonRequired      = "required"
	ReasonType          = "isType"
	ReasonNotEmpty      = "notEmpty"
	ReasonEmail         = "isEmail"
	ReasonLengthInRange = "lengthInRange"
	ReasonIsIn          = "isIn"
	ReasonMaxItems      = "maxItems"
	ReasonMaxSize       = "maxSize"
)

// File is the metadata of an uploaded file. Only metadata is validated.
type File struct {
	Filename    string
	ContentType string
	Size        int64
}

// Payload maps field names to decoded values: string, []string, []any or File.
type Payload map[string]any

// Rule declares the constraints of one field.
type Rule struct {
	Field    string
	Kind     Kind
	Required bool
	NonEmpty bool
	Email    bool
	// MinLen and MaxLen bound the rune length of string values when MaxLen > 0.
	MinLen int
	MaxLen int
	// OneOf restricts string values, or a file's content type, to an enumeration.
	OneOf []string
}

// Errors maps field name to failure reason.
type Errors map[string]string

// Schema is an ordered set of field rules.
type Schema []Rule

// Validate checks p against every rule and reports all failing fields. It
// returns nil when every field passes.
func (s Schema) Validate(p Payload) Errors {
	var errs Errors
	for _, rule := range s {
		if reason := rule.check(p[rule.Field]); reason != "" {
			if errs == nil {
				errs = Errors{}
			}
			errs[rule.Field] = reason
		}
	}
	return errs
}

func (r Rule) check(value any) string {
	if isAbsent(value) {
		if r.Required {
			return ReasonRequired
		}
		return ""
	}

	switch r.Kind {
	case KindFile:
		f, ok := value.(File)
		if !ok {
			return ReasonType
		}
		if len(r.OneOf) > 0 && !govalidator.IsIn(f.ContentType, r.OneOf...) {
			return ReasonIsIn
		}
		return ""
	case KindStrings:
		items, ok := Strings(value)
		if !ok {
			return ReasonType
		}
		if r.NonEmpty && !hasNonBlank(items) {
			return ReasonNotEmpty
		}
		return ""
	default:
		str, ok := value.(string)
		if !ok {
			return ReasonType
		}
		return r.checkString(str)
	}
}

func (r Rule) checkString(str string) string {
	if r.NonEmpty && strings.TrimSpace(str) == "" {
		return ReasonNotEmpty
	}
	if r.Email && !govalidator.IsEmail(str) {
		return ReasonEmail
	}
	if r.MaxLen > 0 && !govalidator.StringLength(str, strconv.Itoa(r.MinLen), strconv.Itoa(r.MaxLen)) {
		return ReasonLengthInRange
	}
	if len(r.OneOf) > 0 && !govalidator.IsIn(str, r.OneOf...) {
		return ReasonIsIn
	}
	return ""
}

// Strings normalizes a string-or-list value into a list. A single string is
// split on commas. It reports false when value is neither shape.
func Strings(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return strings.Split(v, ","), true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}
	if f, ok := value.(File); ok {
		return f == File{}
	}
	return false
}

func hasNonBlank(items []string) bool {
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			return true
		}
	}
	return false
}
