package reports

import (
	"fmt"
	"time"

	"github.com/lucasgomesc1993/financas-api/internal/money"
	"github.com/lucasgomesc1993/financas-api/internal/pdfdoc"
)

var monthNames = [...]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"}

// MonthlyPDF renders the yearly income/expense table.
func MonthlyPDF(year int, rows []MonthRow, generatedAt time.Time) ([]byte, error) {
	var income, expense int64
	for _, r := range rows {
		income += r.Income
		expense += r.Expense
	}

	doc := pdfdoc.New(fmt.Sprintf("Relatório anual %d", year), "Receitas e despesas por mês")
	doc.Summary(
		[]string{"Receitas", "Despesas", "Saldo"},
		[]string{money.Format(income), money.Format(expense), money.Format(income - expense)},
	)

	doc.Table([]pdfdoc.Column{
		{Title: "Mês", Width: 50},
		{Title: "Receitas", Width: 46, Align: "R"},
		{Title: "Despesas", Width: 46, Align: "R"},
		{Title: "Saldo", Width: 44, Align: "R"},
	})
	for i, r := range rows {
		label := r.Month
		if i < len(monthNames) {
			label = monthNames[i]
		}
		doc.Row(label, money.Format(r.Income), money.Format(r.Expense), money.Format(r.Net))
	}

	doc.Note("Compras no cartão entram pela data da compra; pagamentos de fatura não são somados de novo.")
	return doc.Bytes("Gerado em " + generatedAt.Format("02/01/2006 15:04"))
}
