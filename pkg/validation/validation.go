// Package validation checks submitted form values against an entity's field
// descriptors before anything is persisted.
package validation

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// Validate returns one human-readable message per violation; an empty result
// means the values may proceed. existing is the current row on update and nil
// on create.
func Validate(entity *schema.EntitySchema, values map[string]string, action v1alpha1.Action, existing map[string]interface{}) []string {
	errs := ValidateFields(entity, values, action, existing)
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// ValidateFields is Validate in apimachinery form. It never touches storage.
func ValidateFields(entity *schema.EntitySchema, values map[string]string, action v1alpha1.Action, _ map[string]interface{}) field.ErrorList {
	var allErrs field.ErrorList
	for _, f := range entity.Fields {
		if f.PrimaryKey || f.AutoNow {
			continue
		}
		allErrs = append(allErrs, validateField(f, values[f.Name], action)...)
	}
	return allErrs
}

func validateField(f schema.FieldDef, value string, action v1alpha1.Action) field.ErrorList {
	var allErrs field.ErrorList
	path := field.NewPath(f.Name)

	if strings.TrimSpace(value) == "" {
		// Updates are partial: an omitted required field keeps its stored value.
		if f.Required && action == v1alpha1.ActionCreate {
			allErrs = append(allErrs, field.Required(path, ""))
		}
		return allErrs
	}

	if f.MaxLength > 0 && f.Type == schema.FieldTypeString && utf8.RuneCountInString(value) > f.MaxLength {
		allErrs = append(allErrs, field.TooLong(path, value, f.MaxLength))
	}

	if f.Pattern != schema.PatternNone && !f.Pattern.Match(value) {
		allErrs = append(allErrs, field.Invalid(path, value, f.Pattern.Message()))
	}

	if len(f.Choices) > 0 && !f.HasChoice(value) {
		allErrs = append(allErrs, field.NotSupported(path, value, f.Choices))
	}

	switch f.Type {
	case schema.FieldTypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			allErrs = append(allErrs, field.Invalid(path, value, "must be a number"))
		} else if f.NonNegative && d.IsNegative() {
			allErrs = append(allErrs, field.Invalid(path, value, "must not be negative"))
		}
	case schema.FieldTypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			allErrs = append(allErrs, field.Invalid(path, value, "must be a whole number"))
		} else if f.NonNegative && n < 0 {
			allErrs = append(allErrs, field.Invalid(path, value, "must not be negative"))
		}
	case schema.FieldTypeDate:
		if _, err := schema.ParseDate(value); err != nil {
			allErrs = append(allErrs, field.Invalid(path, value, "must be a date (YYYY-MM-DD)"))
		}
	case schema.FieldTypeTimestamp:
		if _, err := schema.ParseTimestamp(value); err != nil {
			allErrs = append(allErrs, field.Invalid(path, value, "must be a date and time"))
		}
	}

	return allErrs
}
