package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplates_CA1(t *testing.T) {
	registry, err := LoadTemplates()
	require.NoError(t, err)

	schema := registry.Get("CA1")
	require.NotNil(t, schema)
	assert.Equal(t, "CA1", schema.ID)
	assert.Equal(t, "Own Funds", schema.Name)

	// 29 rows x 2 columns
	assert.Len(t, schema.Fields, 58)
}

func TestTemplateSchema_ByCode(t *testing.T) {
	registry, err := LoadTemplates()
	require.NoError(t, err)
	schema := registry.Get("CA1")

	spec := schema.ByCode("R0200_C0010")
	require.NotNil(t, spec)
	assert.Equal(t, "R0200", spec.RowCode)
	assert.Equal(t, "C0010", spec.ColCode)
	assert.True(t, spec.Calculated)
	assert.True(t, spec.Required)
	assert.Equal(t, DataTypeNumeric, spec.DataType)

	assert.Nil(t, schema.ByCode("R9999_C0010"))
}

func TestTemplateSchema_RequiredOnlyOnAmountColumn(t *testing.T) {
	registry, err := LoadTemplates()
	require.NoError(t, err)
	schema := registry.Get("CA1")

	var codes []string
	for _, spec := range schema.Required() {
		codes = append(codes, spec.FieldCode)
	}
	assert.Equal(t, []string{"R0200_C0010", "R0280_C0010", "R0370_C0010", "R0380_C0010"}, codes)

	// The equity breakdown column never carries the required flag.
	spec := schema.ByCode("R0200_C0020")
	require.NotNil(t, spec)
	assert.False(t, spec.Required)
}

func TestFieldCode(t *testing.T) {
	assert.Equal(t, "R0010_C0010", FieldCode("R0010", "C0010"))
}

func TestRegistry_IDsSorted(t *testing.T) {
	registry, err := LoadTemplates()
	require.NoError(t, err)
	assert.Contains(t, registry.IDs(), "CA1")
	assert.Nil(t, registry.Get("CA2"))
}
