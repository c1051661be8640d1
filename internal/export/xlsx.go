// Package export renders invoices and reports as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	invoiceSheet = "Invoice"
	summarySheet = "Summary"
	stockSheet   = "Stock"
)

// InvoiceWorkbook renders an invoice with one row per ticket
func InvoiceWorkbook(invoice *domain.PublicInvoiceDTO) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := [][]interface{}{
		{"Invoice", invoice.InvoiceNumber},
		{"Customer", invoice.Customer},
		{"Status", string(invoice.Status)},
		{"Date", invoice.CreatedAt},
	}
	for i, row := range header {
		if err := setRow(f, invoiceSheet, i+1, row); err != nil {
			return nil, err
		}
	}

	const linesStart = 6
	if err := setRow(f, invoiceSheet, linesStart, []interface{}{"Ticket", "Commodity", "Date", "Bales", "Net lbs", "Tons"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(invoiceSheet, "A6", "F6", bold); err != nil {
		return nil, err
	}

	row := linesStart + 1
	for _, line := range invoice.Lines {
		var netLbs interface{}
		if line.NetLbs != nil {
			netLbs = *line.NetLbs
		}
		if err := setRow(f, invoiceSheet, row, []interface{}{line.Label, line.Commodity, line.Date, line.Bales, netLbs, round2(line.Tons)}); err != nil {
			return nil, err
		}
		row++
	}

	totals := [][]interface{}{
		{"Total", "", "", invoice.TotalBales, invoice.TotalNetLbs, round2(invoice.TotalTons)},
		{},
		{"Price unit", string(invoice.PriceUnit)},
		{"Price per unit", derefOrEmpty(invoice.PricePerUnit)},
		{"Amount due", invoice.TotalAmount},
	}
	totalRow := row
	for _, r := range totals {
		if err := setRow(f, invoiceSheet, row, r); err != nil {
			return nil, err
		}
		row++
	}
	if err := f.SetCellStyle(invoiceSheet, cell(1, totalRow), cell(6, totalRow), bold); err != nil {
		return nil, err
	}
	if invoice.Notes != "" {
		if err := setRow(f, invoiceSheet, row+1, []interface{}{"Notes", invoice.Notes}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(invoiceSheet, "A", "F", 16); err != nil {
		return nil, err
	}

	return write(f)
}

// ReportWorkbook renders a report with a summary sheet and a stock-by-commodity sheet
func ReportWorkbook(report *domain.ReportDTO) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(stockSheet); err != nil {
		return nil, err
	}

	period := "All time"
	switch {
	case report.From != nil && report.To != nil:
		period = fmt.Sprintf("%s to %s", report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	case report.From != nil:
		period = "From " + report.From.Format("2006-01-02")
	case report.To != nil:
		period = "Until " + report.To.Format("2006-01-02")
	}

	rows := [][]interface{}{
		{"Period", period},
		{},
		{"Metric", "Bales", "Tons", "Amount"},
		{"Production", report.ProductionBales},
		{"Sales", report.SalesBales, round2(report.SalesTons), round2(report.Revenue)},
		{"Purchases", report.PurchaseBales, round2(report.PurchaseTons), round2(report.Cost)},
		{"Net position", "", "", round2(report.NetPosition)},
	}
	for i, r := range rows {
		if err := setRow(f, summarySheet, i+1, r); err != nil {
			return nil, err
		}
	}

	if err := setRow(f, stockSheet, 1, []interface{}{"Commodity", "Bales", "Tons"}); err != nil {
		return nil, err
	}
	for i, c := range report.StockByCommodity {
		if err := setRow(f, stockSheet, i+2, []interface{}{c.Commodity, c.Bales, round2(c.Tons)}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "D", 16); err != nil {
		return nil, err
	}

	return write(f)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	return f.SetSheetRow(sheet, cell(1, row), &values)
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func derefOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
