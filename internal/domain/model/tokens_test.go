package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteTokens(t *testing.T) {
	tokens := map[string]string{
		"sku":          "CAR-001",
		"variety_name": "Nantes",
		"empty":        "",
		"loop":         "{sku}",
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"no placeholders", "Sow seeds", "Sow seeds"},
		{"single token", "Sow {sku}", "Sow CAR-001"},
		{"repeated token", "{sku}/{sku}", "CAR-001/CAR-001"},
		{"two tokens", "{variety_name} ({sku})", "Nantes (CAR-001)"},
		{"unknown token kept", "Sow {unknown}", "Sow {unknown}"},
		{"empty value", "[{empty}]", "[]"},
		{"value not rescanned", "{loop}", "{sku}"},
		{"unterminated brace", "Sow {sku", "Sow {sku"},
		{"nested open brace", "{{sku}}", "{CAR-001}"},
		{"empty braces", "{}", "{}"},
		{"empty text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubstituteTokens(tt.text, tokens))
		})
	}
}

func TestSubstituteTokens_NilMap(t *testing.T) {
	assert.Equal(t, "Sow {sku}", SubstituteTokens("Sow {sku}", nil))
}

func TestRuleParsing(t *testing.T) {
	r := Rule{Condition: "label:harvested", Action: "section: harvested "}

	label, ok := r.ConditionLabel()
	assert.True(t, ok)
	assert.Equal(t, "harvested", label)

	key, ok := r.ActionSection()
	assert.True(t, ok)
	assert.Equal(t, "harvested", key)

	r.Condition = "priority:4"
	_, ok = r.ConditionLabel()
	assert.False(t, ok)
}

func TestEffectiveProjectID(t *testing.T) {
	tpl := Template{}
	assert.Equal(t, "default", tpl.EffectiveProjectID("default"))
	tpl.ProjectID = "own"
	assert.Equal(t, "own", tpl.EffectiveProjectID("default"))
}

func TestTaskTokens(t *testing.T) {
	task := Task{TokenValues: map[string]interface{}{"sku": "CAR-001", "count": 3.0, "none": nil}}
	assert.Equal(t, map[string]string{"sku": "CAR-001", "count": "3", "none": ""}, task.Tokens())
}
