package variants

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditor_NewProductGeneratesAllCombinations(t *testing.T) {
	e := NewEditor(sizeColor(), nil)

	assert.Len(t, e.Variants(), 4)
	assert.True(t, e.Unused().Empty())
}

func TestEditor_DeleteThenReorderKeepsDeletion(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	target := e.Variants()[3]
	require.Equal(t, "M / Blue", target.Title)

	require.NoError(t, e.DeleteVariant(target.ID))
	require.NoError(t, e.MoveOption(1, 0))

	assert.Len(t, e.Variants(), 3)
	for _, v := range e.Variants() {
		assert.NotEqual(t, target.ID, v.ID)
	}
	assert.Equal(t, "Color", e.Options()[0].Name)
	assert.Empty(t, e.DeletedIDs())
}

func TestEditor_DeletePersistedVariantRecordsID(t *testing.T) {
	saved := Reconcile(sizeColor(), nil, nil)
	for i := range saved {
		saved[i].ID = []string{"1", "2", "3", "4"}[i]
	}
	e := NewEditor(sizeColor(), saved)

	require.NoError(t, e.DeleteVariant("2"))

	assert.Equal(t, []string{"2"}, e.DeletedIDs())
	assert.ErrorIs(t, e.DeleteVariant("2"), ErrVariantNotFound)
}

func TestEditor_DeletingAllValuesReportsUnused(t *testing.T) {
	e := NewEditor([]Option{{Name: "Color", Values: []string{"Red", "Blue"}}}, nil)
	blue := e.Variants()[1]
	require.Equal(t, "Blue", blue.Title)

	require.NoError(t, e.DeleteVariant(blue.ID))

	assert.Equal(t, []string{"Blue"}, e.Unused().For("Color"))

	e.StripUnused()
	assert.Equal(t, []string{"Red"}, e.Options()[0].Values)
	assert.Len(t, e.Variants(), 1)
}

func TestEditor_AddValuePreservesEdits(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	first := e.Variants()[0]
	price := decimal.NewFromInt(25)
	_, err := e.UpdateVariant(first.ID, VariantPatch{Price: &price})
	require.NoError(t, err)

	require.NoError(t, e.AddValue("Size", "L"))

	vs := e.Variants()
	require.Len(t, vs, 6)
	assert.True(t, vs[0].Price.Equal(price))
	assert.ErrorIs(t, e.AddValue("Size", "L"), ErrDuplicateValue)
	assert.ErrorIs(t, e.AddValue("Fabric", "Wool"), ErrUnknownOption)
}

func TestEditor_RemoveLastValueRejected(t *testing.T) {
	e := NewEditor([]Option{{Name: "Size", Values: []string{"S"}}}, nil)

	assert.ErrorIs(t, e.RemoveValue("Size", "S"), ErrLastValue)
	assert.ErrorIs(t, e.RemoveValue("Size", "XL"), ErrUnknownValue)
	assert.Equal(t, []string{"S"}, e.Options()[0].Values)
	assert.Len(t, e.Variants(), 1)
}

func TestEditor_RemoveValueDropsCombinations(t *testing.T) {
	e := NewEditor(sizeColor(), nil)

	require.NoError(t, e.RemoveValue("Color", "Blue"))

	assert.Equal(t, []string{"S / Red", "M / Red"}, titles(e.Variants()))
}

func TestEditor_OptionLimit(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	assert.ErrorIs(t, e.AddOption("Size", "XL"), ErrDuplicateOption)
	require.NoError(t, e.AddOption("Material", "Cotton"))

	assert.ErrorIs(t, e.AddOption("Fit", "Slim"), ErrTooManyOptions)
	assert.Len(t, e.Options(), 3)
	assert.Len(t, e.Variants(), 4)
}

func TestEditor_RemoveOption(t *testing.T) {
	e := NewEditor(sizeColor(), nil)

	require.NoError(t, e.RemoveOption("Color"))

	assert.Equal(t, []string{"S", "M"}, titles(e.Variants()))
	assert.ErrorIs(t, e.RemoveOption("Color"), ErrUnknownOption)
}

func TestEditor_AddVariantCollisionLeavesStateUnchanged(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	before := e.Variants()

	_, err := e.AddVariant([]Pair{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}})

	assert.ErrorIs(t, err, ErrDuplicateCombination)
	assert.Equal(t, before, e.Variants())
}

func TestEditor_AddVariantValidation(t *testing.T) {
	e := NewEditor(sizeColor(), nil)

	_, err := e.AddVariant([]Pair{{Name: "Fabric", Value: "Wool"}})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = e.AddVariant([]Pair{{Name: "Size", Value: "XL"}})
	assert.ErrorIs(t, err, ErrUnknownValue)

	_, err = e.AddVariant(nil)
	assert.ErrorIs(t, err, ErrEmptyCombination)

	assert.Len(t, e.Variants(), 4)
}

func TestEditor_AddPartialVariantSurvivesRegeneration(t *testing.T) {
	e := NewEditor(sizeColor(), nil)

	v, err := e.AddVariant([]Pair{{Name: "Size", Value: "S"}})
	require.NoError(t, err)
	assert.Equal(t, "S", v.Title)
	assert.True(t, v.Manual)

	require.NoError(t, e.AddValue("Color", "Green"))
	assert.Len(t, e.Variants(), 7)

	require.NoError(t, e.RemoveValue("Size", "S"))
	for _, got := range e.Variants() {
		assert.NotEqual(t, v.ID, got.ID)
	}
}

func TestEditor_ReAddDeletedCombination(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	first := e.Variants()[0]
	require.NoError(t, e.DeleteVariant(first.ID))

	_, err := e.AddVariant(first.Options)
	require.NoError(t, err)
	require.NoError(t, e.AddValue("Size", "L"))

	assert.Len(t, e.Variants(), 6)
	assert.Equal(t, "S / Red", e.Variants()[0].Title)
}

func TestEditor_UpdateVariantValidation(t *testing.T) {
	e := NewEditor(sizeColor(), nil)
	id := e.Variants()[0].ID
	neg := decimal.NewFromInt(-1)
	negInv := -1
	sku := " TEE-S "

	_, err := e.UpdateVariant(id, VariantPatch{Price: &neg})
	assert.ErrorIs(t, err, ErrNegativePrice)
	_, err = e.UpdateVariant(id, VariantPatch{Inventory: &negInv})
	assert.ErrorIs(t, err, ErrNegativeInventory)
	_, err = e.UpdateVariant("missing", VariantPatch{})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	v, err := e.UpdateVariant(id, VariantPatch{SKU: &sku})
	require.NoError(t, err)
	assert.Equal(t, "TEE-S", v.SKU)
}

func TestEditor_LoadsSavedPartialVariantAsManual(t *testing.T) {
	saved := append(Reconcile(sizeColor(), nil, nil), Variant{
		ID:      "99",
		Title:   "M",
		Options: []Pair{{Name: "Size", Value: "M"}},
	})

	e := NewEditor(sizeColor(), saved)

	vs := e.Variants()
	require.Len(t, vs, 5)
	assert.Equal(t, "99", vs[4].ID)
	assert.True(t, vs[4].Manual)
}
