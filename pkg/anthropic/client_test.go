package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONObject_Direct(t *testing.T) {
	parsed := ParseJSONObject(`{"market_fit": "Conejo", "cantidad_de_habitaciones": "15"}`)
	require.NotNil(t, parsed)
	assert.Equal(t, "Conejo", parsed["market_fit"])
	assert.Equal(t, "15", parsed["cantidad_de_habitaciones"])
}

func TestParseJSONObject_MarkdownFence(t *testing.T) {
	parsed := ParseJSONObject("```json\n{\"market_fit\": \"Hormiga\"}\n```")
	require.NotNil(t, parsed)
	assert.Equal(t, "Hormiga", parsed["market_fit"])
}

func TestParseJSONObject_SurroundingProse(t *testing.T) {
	parsed := ParseJSONObject(`Aquí está el análisis: {"market_fit": "Elefante"} según los datos.`)
	require.NotNil(t, parsed)
	assert.Equal(t, "Elefante", parsed["market_fit"])
}

func TestParseJSONObject_NoObject(t *testing.T) {
	assert.Nil(t, ParseJSONObject("no pude determinar la clasificación"))
	assert.Nil(t, ParseJSONObject(""))
}
