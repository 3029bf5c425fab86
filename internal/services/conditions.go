package services

import (
	"strconv"
	"strings"
)

// Operator is the closed set of condition operators. An operator outside
// this set evaluates to false instead of raising, so a stale rule can never
// break event dispatch.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpHasTag      Operator = "has_tag"
	OpNotHasTag   Operator = "not_has_tag"
)

// Condition is a single predicate over a resolved field value.
type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
	Logic    string      `json:"logic,omitempty"` // AND (default) or OR
}

// EvaluateCondition resolves the condition's field against root and applies
// the operator. Pure, no side effects.
func EvaluateCondition(cond Condition, root map[string]interface{}) bool {
	value := ResolveField(cond.Field, root)

	switch cond.Operator {
	case OpEquals:
		return stringify(value) == stringify(cond.Value)
	case OpNotEquals:
		return stringify(value) != stringify(cond.Value)
	case OpContains:
		return containsFold(value, cond.Value)
	case OpNotContains:
		return !containsFold(value, cond.Value)
	case OpIsEmpty:
		return isEmptyValue(value)
	case OpIsNotEmpty:
		return !isEmptyValue(value)
	case OpGreaterThan:
		a, b, ok := numericPair(value, cond.Value)
		return ok && a > b
	case OpLessThan:
		a, b, ok := numericPair(value, cond.Value)
		return ok && a < b
	case OpHasTag:
		return hasTag(value, cond.Value)
	case OpNotHasTag:
		return !hasTag(value, cond.Value)
	default:
		return false
	}
}

// EvaluateConditions folds the list left to right. Default accumulation is
// AND; a condition carrying logic "OR" switches the accumulation for that
// step. An empty list always holds.
func EvaluateConditions(conds []Condition, root map[string]interface{}) bool {
	if len(conds) == 0 {
		return true
	}
	result := EvaluateCondition(conds[0], root)
	for _, cond := range conds[1:] {
		step := EvaluateCondition(cond, root)
		if strings.EqualFold(cond.Logic, "OR") {
			result = result || step
		} else {
			result = result && step
		}
	}
	return result
}

// containsFold reports whether the stringified value contains the
// stringified target, case-insensitively. A nil value contains nothing.
func containsFold(value, target interface{}) bool {
	if value == nil {
		return false
	}
	return strings.Contains(
		strings.ToLower(stringify(value)),
		strings.ToLower(stringify(target)),
	)
}

func isEmptyValue(value interface{}) bool {
	return value == nil || value == ""
}

// numericPair coerces both operands to float64. Non-numeric operands make
// the comparison false rather than erroring.
func numericPair(a, b interface{}) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// hasTag requires the resolved value to be a list and tests membership by
// stringified equality. Anything that is not a list has no tags.
func hasTag(value, target interface{}) bool {
	want := stringify(target)
	switch list := value.(type) {
	case []string:
		for _, item := range list {
			if item == want {
				return true
			}
		}
	case []interface{}:
		for _, item := range list {
			if stringify(item) == want {
				return true
			}
		}
	}
	return false
}
