package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptscan/internal/common"
)

func TestSanitizeCleanObjectPassesThrough(t *testing.T) {
	got, err := Sanitize(`{"merchantName":"Walmart","totalAmount":45.67,"purchaseDate":"2024-03-15","items":[]}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Walmart", got["merchantName"])
	assert.Equal(t, 45.67, got["totalAmount"])
}

func TestSanitizeStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"merchantName\":\"Target\",\"totalAmount\":10}\n```"
	got, err := Sanitize(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Target", got["merchantName"])
}

func TestSanitizeTrimsSurroundingProse(t *testing.T) {
	raw := "Here is the extracted data:\n{\"merchantName\":\"Costco\",\"totalAmount\":99.99}\nLet me know if you need anything else."
	got, err := Sanitize(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Costco", got["merchantName"])
}

func TestSanitizeStripsExampleCode(t *testing.T) {
	raw := `{"merchantName":"Costco","totalAmount":50,
"note":"ok"}
To extract this yourself, use the following:
const data = JSON.parse(response);`
	got, err := Sanitize(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Costco", got["merchantName"])
}

func TestSanitizeRepairsItemsObject(t *testing.T) {
	raw := `{"merchantName":"Cafe","items":{"Coffee":{"quantity":1,"price":3.5},"Bagel":{"quantity":2,"price":2.0}}}`
	got, err := Sanitize(raw, nil)
	require.NoError(t, err)

	items, ok := got["items"].([]any)
	require.True(t, ok, "items should be repaired into a list")
	require.Len(t, items, 2)

	// sorted by name for determinism
	first := items[0].(map[string]any)
	assert.Equal(t, "Bagel", first["name"])
	assert.Equal(t, 2.0, first["quantity"])
	second := items[1].(map[string]any)
	assert.Equal(t, "Coffee", second["name"])
	assert.Equal(t, 3.5, second["price"])
}

func TestSanitizeRepairsMisspelledDateKey(t *testing.T) {
	got, err := Sanitize(`{"merchantName":"Aldi","purchasseeDate":"2024-05-01"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", got["purchaseDate"])
	_, exists := got["purchasseeDate"]
	assert.False(t, exists)
}

func TestSanitizeRejectsCodeInDataField(t *testing.T) {
	_, err := Sanitize(`{"merchantName":"function extractMerchant","totalAmount":5}`, nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindMalformedExtraction))
}

func TestSanitizeRejectsArrowFunctionValue(t *testing.T) {
	_, err := Sanitize(`{"totalAmount":"(x) => x.total"}`, nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindMalformedExtraction))
}

func TestSanitizeRejectsTopLevelArray(t *testing.T) {
	_, err := Sanitize(`Sure, here is the data: [1, 2, 3]`, nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindMalformedExtraction))
}

func TestSanitizeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "I could not read the receipt.", "{not json}"} {
		_, err := Sanitize(raw, nil)
		require.Error(t, err, "input %q", raw)
		assert.True(t, common.IsKind(err, common.KindMalformedExtraction), "input %q", raw)
	}
}

func TestSanitizeRejectsObjectInScalarField(t *testing.T) {
	_, err := Sanitize(`{"merchantName":{"nested":"object"}}`, nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindMalformedExtraction))
}
