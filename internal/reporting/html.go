package reporting

import (
	"bytes"
	"html/template"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ledgerReportTemplate is the printable ledger journal handed to the
// renderer.
var ledgerReportTemplate = template.Must(template.New("ledger").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 11px; }
table { width: 100%; border-collapse: collapse; }
th, td { border-bottom: 1px solid #ccc; padding: 4px; text-align: left; }
td.amount { text-align: right; }
</style>
</head>
<body>
<h1>Ledger journal {{.Year}}</h1>
<table>
<tr><th>Doc no.</th><th>Date</th><th>Account</th><th>Text</th><th>Debit</th><th>Credit</th></tr>
{{range .Lines}}<tr>
<td>{{.DocumentNumber}}</td><td>{{.Date}}</td><td>{{.Account}}</td><td>{{.Text}}</td>
<td class="amount">{{.Debit}}</td><td class="amount">{{.Credit}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type ledgerReportLine struct {
	DocumentNumber string
	Date           string
	Account        string
	Text           string
	Debit          string
	Credit         string
}

type ledgerReportData struct {
	Year  int
	Lines []ledgerReportLine
}

// formatAmount renders a decimal string with locale-aware grouping for the
// printed report. The JSON export keeps raw decimal strings; only the PDF
// view is localized.
func formatAmount(printer *message.Printer, raw *string) string {
	if raw == nil {
		return ""
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return *raw
	}
	return printer.Sprintf("%.2f", f)
}

// LedgerReportHTML renders the transaction export as a printable document.
func LedgerReportHTML(export map[string]any, year int, locale language.Tag) (string, error) {
	printer := message.NewPrinter(locale)
	data := ledgerReportData{Year: year}
	lines, _ := export["transactions"].([]TransactionExport)
	for _, line := range lines {
		data.Lines = append(data.Lines, ledgerReportLine{
			DocumentNumber: line.DocumentNumber,
			Date:           line.Date,
			Account:        line.Account.Number + " " + line.Account.Name,
			Text:           line.Text,
			Debit:          formatAmount(printer, line.Debit),
			Credit:         formatAmount(printer, line.Credit),
		})
	}
	var buf bytes.Buffer
	if err := ledgerReportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
