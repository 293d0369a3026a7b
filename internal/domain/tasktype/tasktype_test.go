package tasktype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

func TestLookup(t *testing.T) {
	v, ok := Lookup("")
	require.True(t, ok)
	assert.Equal(t, Generic, v.Name())

	v, ok = Lookup(Crop)
	require.True(t, ok)
	assert.Equal(t, Crop, v.Name())

	_, ok = Lookup("orchard")
	assert.False(t, ok)

	assert.Equal(t, []string{Crop, Generic}, Names())
}

func TestCropVariant(t *testing.T) {
	v, _ := Lookup(Crop)
	tpl := &model.Template{Title: "Carrots"}
	tokens := map[string]string{"sku": "CAR-001", "variety_name": "Nantes", "extra": "x"}

	assert.Equal(t, "Carrots - Nantes (CAR-001)", v.Title(tpl, tokens))
	assert.Equal(t, "SKU: CAR-001\nVariety: Nantes", v.Description(tokens))
	assert.Equal(t, map[string]string{"sku": "CAR-001", "variety_name": "Nantes"}, PickTokens(v, tokens))
	assert.NotEmpty(t, v.RuleKey())
}

func TestGenericVariant(t *testing.T) {
	v, _ := Lookup(Generic)
	tpl := &model.Template{Title: "Weekly chores"}

	assert.Equal(t, "Weekly chores", v.Title(tpl, map[string]string{"a": "b"}))
	assert.Empty(t, v.Description(nil))
	assert.Empty(t, v.RuleKey())
	assert.Empty(t, PickTokens(v, map[string]string{"a": "b"}))
}

func TestGenericVariant_TitleSubstitutesTokens(t *testing.T) {
	v, _ := Lookup(Generic)
	tpl := &model.Template{Title: "Plant {bed} {missing}"}

	assert.Equal(t, "Plant B3 {missing}", v.Title(tpl, map[string]string{"bed": "B3"}))
}
