package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func descriptions(items []Transaction) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.Description
	}
	return out
}

func TestSearch_RanksCloserMatchesFirst(t *testing.T) {
	items := []Transaction{
		{Description: "Supermercado Extra"},
		{Description: "Uber viagem"},
		{Description: "Mercado Livre"},
	}

	got := Search(items, "mercado")
	assert.Equal(t, []string{"Mercado Livre", "Supermercado Extra"}, descriptions(got))
}

func TestSearch_IgnoresAccentsAndCase(t *testing.T) {
	groceries := "Alimentação"
	items := []Transaction{
		{Description: "Açougue Boi Gordo"},
		{Description: "Feira", CategoryName: &groceries},
		{Description: "Cinema", Notes: "pipoca"},
	}

	assert.Equal(t, []string{"Açougue Boi Gordo"}, descriptions(Search(items, "ACOUGUE")))
	assert.Equal(t, []string{"Feira"}, descriptions(Search(items, "alimentacao")))
	assert.Equal(t, []string{"Cinema"}, descriptions(Search(items, "pipoca")))
}

func TestSearch_EmptyQueryKeepsAll(t *testing.T) {
	items := []Transaction{{Description: "a"}, {Description: "b"}}
	assert.Len(t, Search(items, "  "), 2)
	assert.Empty(t, Search(items, "zzz"))
}
