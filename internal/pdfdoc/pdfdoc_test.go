package pdfdoc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoc_Bytes(t *testing.T) {
	d := New("Fatura Nubank", "Referência: 2024-03", "Vencimento: 10/04/2024")
	d.Summary([]string{"Total", "Pago", "Restante"}, []string{"R$ 1.234,56", "R$ 0,00", "R$ 1.234,56"})
	d.Table([]Column{{Title: "Data", Width: 30, Align: "C"}, {Title: "Descrição", Width: 116}, {Title: "Valor", Width: 40, Align: "R"}})
	for i := 0; i < 80; i++ {
		d.Row("05/03/2024", fmt.Sprintf("Padaria São João %d", i), "R$ 12,50")
	}
	d.Note("Pagamento mínimo não disponível.")

	out, err := d.Bytes("financas")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate(" abc ", 10))
	assert.Equal(t, "açú…", Truncate("açúcar", 4))
	assert.Equal(t, "açúcar", Truncate("açúcar", 0))
}
