// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; a validator caches struct metadata and is safe for
// concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names, the names the model writes.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the triple's required fields and evidence grade. It
// returns nil when the triple is valid, or a map from JSON field name to
// the failed rule.
func (t *CausalTriple) Validate() map[string]string {
	if err := validate.Struct(t); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return map[string]string{"": err.Error()}
		}
		out := make(map[string]string, len(errs))
		for _, e := range errs {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return out
	}
	return nil
}

// Normalize trims every field and lower-cases the evidence grade.
func (t *CausalTriple) Normalize() {
	t.Subject = strings.TrimSpace(t.Subject)
	t.SubjectState = strings.TrimSpace(t.SubjectState)
	t.Predicate = strings.TrimSpace(t.Predicate)
	t.Object = strings.TrimSpace(t.Object)
	t.ObjectStateChange = strings.TrimSpace(t.ObjectStateChange)
	t.TemporalInfo = strings.TrimSpace(t.TemporalInfo)
	t.Mechanism = strings.TrimSpace(t.Mechanism)
	t.EvidenceStrength = EvidenceStrength(strings.ToLower(strings.TrimSpace(string(t.EvidenceStrength))))
	t.SourceSentence = strings.TrimSpace(t.SourceSentence)
}

// FormatValidation renders a Validate result as a stable one-line message.
func FormatValidation(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + errs[k]
	}
	return strings.Join(parts, ", ")
}
