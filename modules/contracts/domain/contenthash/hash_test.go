package contenthash_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
)

func testContent() contractcontent.ContractContent {
	return contractcontent.ContractContent{
		CustomerName:  "Maria Silva",
		CustomerTaxID: "123.456.789-00",
		CapacityKWp:   decimal.RequireFromString("5.94"),
		Amount:        decimal.RequireFromString("24890.50"),
		PaymentMethod: "pix",
		LineItems: []contractcontent.LineItem{
			{Name: "Panel 550W", Quantity: 12, Unit: "pc", SortOrder: 1},
		},
	}
}

func TestGenerate_Shape(t *testing.T) {
	t.Parallel()

	hash := contenthash.Generate(testContent())
	require.True(t, hash.IsValid())
	assert.Len(t, hash.String(), 64)
	assert.Equal(t, strings.ToLower(hash.String()), hash.String())
}

func TestGenerate_SameContentSameHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, contenthash.Generate(testContent()), contenthash.Generate(testContent()))
}

func TestGenerate_DifferentContentDifferentHash(t *testing.T) {
	t.Parallel()

	other := testContent()
	other.Amount = decimal.RequireFromString("24890.51")
	assert.NotEqual(t, contenthash.Generate(testContent()), contenthash.Generate(other))
}

func TestVerify_CaseInsensitive(t *testing.T) {
	t.Parallel()

	content := testContent()
	hash := contenthash.Generate(content)

	assert.True(t, contenthash.Verify(content, hash))
	assert.True(t, contenthash.Verify(content, contenthash.ContentHash(strings.ToUpper(hash.String()))))
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()

	content := testContent()
	other := testContent()
	other.CustomerName = "Joana Silva"

	assert.False(t, contenthash.Verify(content, contenthash.Generate(other)))
}

func TestParse_NormalizesCase(t *testing.T) {
	t.Parallel()

	raw := strings.ToUpper(contenthash.Generate(testContent()).String())
	parsed := contenthash.Parse("  " + raw + " ")
	assert.True(t, parsed.IsValid())
	assert.Equal(t, strings.ToLower(raw), parsed.String())
}

func TestIsValid_RejectsMalformed(t *testing.T) {
	t.Parallel()

	assert.False(t, contenthash.ContentHash("").IsValid())
	assert.False(t, contenthash.ContentHash("abc123").IsValid())
	assert.False(t, contenthash.ContentHash(strings.Repeat("g", 64)).IsValid())
	assert.False(t, contenthash.ContentHash(strings.Repeat("A", 64)).IsValid())
}
