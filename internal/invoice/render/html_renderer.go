package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Invoice.Number}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
      -webkit-print-color-adjust: exact;
      print-color-adjust: exact;
    }
    .sheet {
      max-width: 760px;
      margin: 0 auto;
    }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      gap: 24px;
    }
    .header h1 {
      margin: 0;
      font-size: 24px;
    }
    .muted { color: #6b7280; }
    .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
      font-weight: 600;
    }
    .logo img { max-height: 56px; }
    .badge {
      display: inline-block;
      border: 1px solid #e5e7eb;
      border-radius: 999px;
      padding: 4px 12px;
      font-size: 11px;
      font-weight: 600;
      text-transform: uppercase;
      background: #f9fafb;
    }
    .parties {
      display: grid;
      grid-template-columns: 1fr 1fr;
      gap: 24px;
      margin-top: 32px;
      font-size: 14px;
    }
    .address { white-space: pre-line; }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
      margin-top: 32px;
    }
    th, td {
      padding: 10px;
      border-bottom: 1px solid #e5e7eb;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #6b7280;
    }
    th.num, td.num { text-align: right; }
    .totals {
      margin-top: 16px;
      margin-left: auto;
      width: 260px;
      font-size: 14px;
    }
    .totals .row {
      display: flex;
      justify-content: space-between;
      padding: 6px 0;
    }
    .totals .grand {
      border-top: 2px solid #111827;
      font-weight: 700;
      font-size: 16px;
    }
  </style>
</head>
<body>
  <div class="sheet">
    <div class="header">
      <div>
        <h1>Invoice</h1>
        <div class="muted">{{.Invoice.Number}}</div>
        <div class="muted">Date: {{formatDate .Invoice.CreatedAt}}</div>
      </div>
      <div style="text-align: right">
        {{if .Sender.LogoURL}}
        <div class="logo"><img src="{{.Sender.LogoURL}}" alt="Business logo" /></div>
        {{end}}
        <div class="badge">{{.Invoice.Status}}</div>
      </div>
    </div>

    <div class="parties">
      <div>
        <div class="label">From</div>
        <div><strong>{{.Sender.DisplayName}}</strong></div>
        {{if .Sender.Email}}<div class="muted">{{.Sender.Email}}</div>{{end}}
        {{if .Sender.Address}}<div class="muted address">{{.Sender.Address}}</div>{{end}}
      </div>
      <div>
        <div class="label">Bill To</div>
        <div><strong>{{.Receiver.DisplayName}}</strong></div>
        {{if and .Receiver.Company .Receiver.Name}}<div>{{.Receiver.Name}}</div>{{end}}
        {{if .Receiver.Email}}<div class="muted">{{.Receiver.Email}}</div>{{end}}
        {{if .Receiver.Address}}<div class="muted address">{{.Receiver.Address}}</div>{{end}}
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th>Description</th>
          <th class="num">Qty</th>
          <th class="num">Rate</th>
          <th class="num">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Description}}</td>
          <td class="num">{{formatQuantity .Qty}}</td>
          <td class="num">{{formatMoney .Rate}}</td>
          <td class="num">{{formatMoney .Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="row"><span class="muted">Subtotal</span><span>{{formatMoney .Invoice.Subtotal}}</span></div>
      <div class="row"><span class="muted">Tax</span><span>{{formatMoney .Invoice.Tax}}</span></div>
      <div class="row grand"><span>Total</span><span>{{formatMoney .Invoice.Total}}</span></div>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatMoney rounds to two decimals for display only; stored values keep
// full precision.
func formatMoney(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	return groupThousands(formatted)
}

func groupThousands(formatted string) string {
	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign = "-"
		formatted = formatted[1:]
	}
	whole, frac, _ := strings.Cut(formatted, ".")
	if len(whole) <= 3 {
		return sign + whole + "." + frac
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return sign + b.String() + "." + frac
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format("Jan 2, 2006")
}

func formatQuantity(value float64) string {
	formatted := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	if formatted == "" {
		return "0"
	}
	return formatted
}
