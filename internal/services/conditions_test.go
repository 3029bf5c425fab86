package services

import "testing"

func contactRoot() map[string]interface{} {
	return map[string]interface{}{
		"email":      "grace@navy.mil",
		"first_name": "Grace",
		"company":    "US Navy",
		"phone":      "",
		"status":     "customer",
		"tags":       []interface{}{"vip", "government"},
		"value":      float64(5000),
		"customFields": map[string]interface{}{
			"industry": "Defense",
		},
	}
}

func TestEvaluateCondition(t *testing.T) {
	root := contactRoot()

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{Field: "status", Operator: OpEquals, Value: "customer"}, true},
		{"equals mismatch", Condition{Field: "status", Operator: OpEquals, Value: "lead"}, false},
		{"equals numeric vs string", Condition{Field: "value", Operator: OpEquals, Value: "5000"}, true},
		{"not_equals", Condition{Field: "status", Operator: OpNotEquals, Value: "lead"}, true},
		{"contains case insensitive", Condition{Field: "company", Operator: OpContains, Value: "navy"}, true},
		{"contains miss", Condition{Field: "company", Operator: OpContains, Value: "army"}, false},
		{"contains on nil is false", Condition{Field: "missing", Operator: OpContains, Value: ""}, false},
		{"not_contains on nil is true", Condition{Field: "missing", Operator: OpNotContains, Value: "x"}, true},
		{"is_empty on empty string", Condition{Field: "phone", Operator: OpIsEmpty}, true},
		{"is_empty on missing field", Condition{Field: "missing", Operator: OpIsEmpty}, true},
		{"is_empty on value", Condition{Field: "email", Operator: OpIsEmpty}, false},
		{"is_not_empty", Condition{Field: "email", Operator: OpIsNotEmpty}, true},
		{"greater_than", Condition{Field: "value", Operator: OpGreaterThan, Value: float64(1000)}, true},
		{"greater_than equal is false", Condition{Field: "value", Operator: OpGreaterThan, Value: float64(5000)}, false},
		{"greater_than string operand", Condition{Field: "value", Operator: OpGreaterThan, Value: "4999"}, true},
		{"greater_than non numeric", Condition{Field: "email", Operator: OpGreaterThan, Value: float64(1)}, false},
		{"less_than", Condition{Field: "value", Operator: OpLessThan, Value: float64(9000)}, true},
		{"has_tag hit", Condition{Field: "tags", Operator: OpHasTag, Value: "vip"}, true},
		{"has_tag miss", Condition{Field: "tags", Operator: OpHasTag, Value: "trial"}, false},
		{"has_tag on non-list", Condition{Field: "email", Operator: OpHasTag, Value: "vip"}, false},
		{"not_has_tag", Condition{Field: "tags", Operator: OpNotHasTag, Value: "trial"}, true},
		{"custom field path", Condition{Field: "customFields.industry", Operator: OpEquals, Value: "Defense"}, true},
		{"unknown operator is false", Condition{Field: "email", Operator: "matches_regex", Value: ".*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.cond, root); got != tt.want {
				t.Errorf("EvaluateCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluateConditionComplement(t *testing.T) {
	// contains/not_contains and has_tag/not_has_tag must be exact
	// complements for every input, including nil resolutions.
	root := contactRoot()
	fields := []string{"email", "company", "tags", "missing", "phone"}
	values := []interface{}{"navy", "vip", "", nil, float64(1)}

	for _, field := range fields {
		for _, value := range values {
			c := EvaluateCondition(Condition{Field: field, Operator: OpContains, Value: value}, root)
			nc := EvaluateCondition(Condition{Field: field, Operator: OpNotContains, Value: value}, root)
			if c == nc {
				t.Errorf("contains/not_contains both %v for field=%q value=%v", c, field, value)
			}
			h := EvaluateCondition(Condition{Field: field, Operator: OpHasTag, Value: value}, root)
			nh := EvaluateCondition(Condition{Field: field, Operator: OpNotHasTag, Value: value}, root)
			if h == nh {
				t.Errorf("has_tag/not_has_tag both %v for field=%q value=%v", h, field, value)
			}
			e := EvaluateCondition(Condition{Field: field, Operator: OpIsEmpty}, root)
			ne := EvaluateCondition(Condition{Field: field, Operator: OpIsNotEmpty}, root)
			if e == ne {
				t.Errorf("is_empty/is_not_empty both %v for field=%q", e, field)
			}
		}
	}
}

func TestEvaluateConditions(t *testing.T) {
	root := contactRoot()
	yes := Condition{Field: "status", Operator: OpEquals, Value: "customer"}
	no := Condition{Field: "status", Operator: OpEquals, Value: "lead"}

	tests := []struct {
		name  string
		conds []Condition
		want  bool
	}{
		{"empty list holds", nil, true},
		{"single true", []Condition{yes}, true},
		{"single false", []Condition{no}, false},
		{"default AND", []Condition{yes, no}, false},
		{"explicit AND", []Condition{yes, {Field: "company", Operator: OpContains, Value: "navy", Logic: "AND"}}, true},
		{"OR rescues", []Condition{no, {Field: "status", Operator: OpEquals, Value: "customer", Logic: "OR"}}, true},
		{"OR lowercase", []Condition{no, {Field: "status", Operator: OpEquals, Value: "customer", Logic: "or"}}, true},
		{"left to right, no precedence", []Condition{no, {Field: "status", Operator: OpEquals, Value: "customer", Logic: "OR"}, no}, false},
		{"AND after OR", []Condition{yes, {Field: "status", Operator: OpEquals, Value: "lead", Logic: "OR"}, yes}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateConditions(tt.conds, root); got != tt.want {
				t.Errorf("EvaluateConditions() = %v, want %v", got, tt.want)
			}
		})
	}
}
