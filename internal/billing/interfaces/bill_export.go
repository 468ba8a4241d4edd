package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	billing "zev-billing/internal/billing/domain"
)

// BuildBillPDF renders one member bill as a PDF document.
func BuildBillPDF(bill billing.Bill, collectiveName, currency, language string, showDailyDetail bool) ([]byte, error) {
	t := translations(language)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Header
	pdf.SetFillColor(33, 60, 114)
	pdf.Rect(0, 0, 210, 20, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.SetXY(10, 6)
	pdf.Cell(120, 8, tr(t["bill_title"]))
	pdf.SetFont("Arial", "", 10)
	pdf.SetXY(130, 7)
	pdf.CellFormat(70, 6, tr(collectiveName), "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	// Addresses
	pdf.SetY(28)
	pdf.SetFont("Arial", "B", 7)
	pdf.SetTextColor(130, 130, 130)
	pdf.Cell(90, 4, tr(t["from"]))
	pdf.SetX(110)
	pdf.Cell(90, 4, tr(t["to"]))
	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(90, 5, tr(collectiveName))
	pdf.SetX(110)
	pdf.SetFont("Arial", "B", 9)
	pdf.Cell(90, 5, tr(bill.Member.FullName()))
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 9)
	pdf.SetX(110)
	pdf.Cell(90, 5, tr(bill.Member.Street))
	pdf.Ln(5)
	cityLine := bill.Member.Zip + " " + bill.Member.City
	if bill.Member.Canton != "" {
		cityLine += ", " + bill.Member.Canton
	}
	pdf.SetX(110)
	pdf.Cell(90, 5, tr(cityLine))
	pdf.Ln(10)

	// Billing period
	pdf.SetFont("Arial", "B", 9)
	pdf.Cell(50, 6, tr(t["billing_period"]))
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(100, 6, tr(periodLabel(bill, language)))
	pdf.Ln(10)

	// Consumption table
	sectionHeader(pdf, tr(t["consumption_cost"]))
	tableHeader(pdf, tr, "kWh", currency)
	tableRow(pdf, tr(t["local_solar"]), bill.LocalConsumptionKWh, bill.LocalRate, bill.LocalCost)
	tableRow(pdf, tr(t["grid"]), bill.GridConsumptionKWh, bill.GridRate, bill.GridCost)
	tableTotal(pdf, tr(t["total"]), bill.TotalConsumptionKWh, bill.TotalCost, currency)
	pdf.Ln(4)

	// Producer settlement
	if bill.IsProducer() {
		sectionHeader(pdf, tr(t["production"]))
		tableHeader(pdf, tr, "kWh", currency)
		tableRow(pdf, tr(t["sold_locally"]), bill.LocalSellKWh, bill.LocalSellRate, bill.LocalSellRevenue)
		tableRow(pdf, tr(t["exported_to_grid"]), bill.GridExportKWh, bill.GridSellRate, bill.GridExportRevenue)
		tableTotal(pdf, tr(t["total"]), bill.TotalProductionKWh, bill.TotalRevenue, currency)
		pdf.Ln(4)
	}

	// Fees
	if len(bill.Fees) > 0 {
		sectionHeader(pdf, tr(t["additional_fees"]))
		pdf.SetFont("Arial", "", 9)
		for _, fee := range bill.Fees {
			pdf.Cell(120, 6, tr(fee.Name))
			pdf.CellFormat(70, 6, fmt.Sprintf("%.2f %s", fee.Amount, currency), "", 0, "R", false, 0, "")
			pdf.Ln(6)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(120, 6, tr(t["total"]))
		pdf.CellFormat(70, 6, fmt.Sprintf("%.2f %s", bill.TotalFees, currency), "", 0, "R", false, 0, "")
		pdf.Ln(10)
	}

	// Summary
	if bill.VATAmount > 0 {
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(120, 6, tr(fmt.Sprintf("%s %.1f%%", t["vat"], bill.VATRate)))
		pdf.CellFormat(70, 6, fmt.Sprintf("%.2f %s", bill.VATAmount, currency), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	pdf.SetFont("Arial", "B", 11)
	label := t["amount_due"]
	amount := bill.GrandTotal
	if amount < 0 {
		// net credit, shown as a positive payout
		label = t["credit"]
		amount = -amount
	}
	pdf.Cell(120, 8, tr(label))
	pdf.CellFormat(70, 8, fmt.Sprintf("%.2f %s", amount, currency), "T", 0, "R", false, 0, "")
	pdf.Ln(8)

	if showDailyDetail && len(bill.DailyDetails) > 0 {
		drawDailyDetail(pdf, tr, t, bill, currency)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func periodLabel(bill billing.Bill, language string) string {
	if len(bill.PeriodMonths) <= 1 {
		return fmt.Sprintf("%s %d", monthName(language, bill.Month), bill.Year)
	}
	first := bill.PeriodMonths[0]
	last := bill.PeriodMonths[len(bill.PeriodMonths)-1]
	if first.Year == last.Year {
		return fmt.Sprintf("%s - %s %d",
			monthName(language, first.Month), monthName(language, last.Month), first.Year)
	}
	return fmt.Sprintf("%s %d - %s %d",
		monthName(language, first.Month), first.Year, monthName(language, last.Month), last.Year)
}

// PDFFileName builds the per-member file name, e.g.
// "bill_2025-01_to_03_Muster_Beat.pdf".
func PDFFileName(bill billing.Bill, language string) string {
	t := translations(language)
	suffix := fmt.Sprintf("%d-%02d", bill.Year, bill.Month)
	if len(bill.PeriodMonths) > 1 {
		first := bill.PeriodMonths[0]
		last := bill.PeriodMonths[len(bill.PeriodMonths)-1]
		if first.Year == last.Year {
			suffix = fmt.Sprintf("%d-%02d_to_%02d", first.Year, first.Month, last.Month)
		} else {
			suffix = fmt.Sprintf("%d-%02d_to_%d-%02d", first.Year, first.Month, last.Year, last.Month)
		}
	}
	return fmt.Sprintf("%s_%s_%s_%s.pdf", t["file_prefix"], suffix, bill.Member.LastName, bill.Member.FirstName)
}

func sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFillColor(240, 242, 246)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(190, 7, "  "+title, "", 0, "L", true, 0, "")
	pdf.Ln(8)
}

func tableHeader(pdf *gofpdf.Fpdf, tr func(string) string, unit, currency string) {
	pdf.SetFont("Arial", "B", 8)
	pdf.SetTextColor(70, 70, 70)
	pdf.Cell(80, 6, "")
	pdf.CellFormat(40, 6, unit, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, tr(currency+"/kWh"), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, tr(currency), "", 0, "R", false, 0, "")
	pdf.Ln(6)
	pdf.SetTextColor(0, 0, 0)
}

func tableRow(pdf *gofpdf.Fpdf, label string, kwh, rate, amount float64) {
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(80, 6, label)
	pdf.CellFormat(40, 6, fmt.Sprintf("%.0f", kwh), "", 0, "R", false, 0, "")
	rateStr := ""
	if rate > 0 {
		rateStr = fmt.Sprintf("%.4f", rate)
	}
	pdf.CellFormat(35, 6, rateStr, "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", amount), "", 0, "R", false, 0, "")
	pdf.Ln(6)
}

func tableTotal(pdf *gofpdf.Fpdf, label string, kwh, amount float64, currency string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.Cell(80, 6, label)
	pdf.CellFormat(40, 6, fmt.Sprintf("%.0f", kwh), "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, "", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, fmt.Sprintf("%.2f %s", amount, currency), "T", 0, "R", false, 0, "")
	pdf.Ln(7)
}

func drawDailyDetail(pdf *gofpdf.Fpdf, tr func(string) string, t map[string]string, bill billing.Bill, currency string) {
	pdf.AddPage()
	sectionHeader(pdf, tr(t["daily_detail"])+" - "+tr(bill.Member.FullName()))

	pdf.SetFont("Arial", "B", 7)
	pdf.SetTextColor(70, 70, 70)
	pdf.CellFormat(25, 6, tr(t["day"]), "B", 0, "L", false, 0, "")
	for _, h := range []string{"kWh solar", "kWh grid", "kWh total", currency + " solar", currency + " grid", currency + " total"} {
		pdf.CellFormat(27, 6, tr(h), "B", 0, "R", false, 0, "")
	}
	pdf.Ln(6)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 7)

	for _, d := range bill.DailyDetails {
		if pdf.GetY() > 275 {
			pdf.AddPage()
		}
		pdf.CellFormat(25, 5, fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day), "", 0, "L", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.0f", d.LocalConsumptionKWh), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.0f", d.GridConsumptionKWh), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.0f", d.TotalConsumptionKWh), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.2f", d.LocalCost), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.2f", d.GridCost), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 5, fmt.Sprintf("%.2f", d.TotalCost), "", 0, "R", false, 0, "")
		pdf.Ln(5)
	}
}

var csvColumns = []string{
	"year", "month", "first_name", "last_name", "address", "city",
	"total_consumption_kwh", "local_consumption_kwh", "grid_consumption_kwh",
	"local_rate", "grid_rate",
	"local_cost_chf", "grid_cost_chf", "total_cost_chf",
	"total_production_kwh", "local_sell_kwh", "grid_export_kwh", "grid_sell_rate",
	"local_sell_revenue_chf", "grid_export_revenue_chf", "total_revenue_chf",
	"total_fees_chf", "vat_chf", "grand_total_chf",
}

// BuildBillsCSV renders all bills as one summary CSV.
func BuildBillsCSV(bills []billing.Bill) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}
	for _, b := range bills {
		row := []string{
			strconv.Itoa(b.Year),
			strconv.Itoa(b.Month),
			b.Member.FirstName,
			b.Member.LastName,
			b.Member.Street,
			b.Member.Zip + " " + b.Member.City,
			fmt.Sprintf("%.0f", b.TotalConsumptionKWh),
			fmt.Sprintf("%.0f", b.LocalConsumptionKWh),
			fmt.Sprintf("%.0f", b.GridConsumptionKWh),
			rateString(b.LocalRate),
			rateString(b.GridRate),
			fmt.Sprintf("%.2f", b.LocalCost),
			fmt.Sprintf("%.2f", b.GridCost),
			fmt.Sprintf("%.2f", b.TotalCost),
			fmt.Sprintf("%.0f", b.TotalProductionKWh),
			fmt.Sprintf("%.0f", b.LocalSellKWh),
			fmt.Sprintf("%.0f", b.GridExportKWh),
			rateString(b.GridSellRate),
			fmt.Sprintf("%.2f", b.LocalSellRevenue),
			fmt.Sprintf("%.2f", b.GridExportRevenue),
			fmt.Sprintf("%.2f", b.TotalRevenue),
			fmt.Sprintf("%.2f", b.TotalFees),
			fmt.Sprintf("%.2f", b.VATAmount),
			fmt.Sprintf("%.2f", b.GrandTotal),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rateString(rate float64) string {
	if rate == 0 {
		return ""
	}
	return fmt.Sprintf("%.4f", rate)
}

// BuildBillsXLSX renders all bills as one workbook with a summary sheet and
// one sheet per member when daily details are present.
func BuildBillsXLSX(bills []billing.Bill) ([]byte, error) {
	f := excelize.NewFile()
	summary := "summary"
	f.SetSheetName("Sheet1", summary)

	for col, name := range csvColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(summary, cell, name)
	}
	for i, b := range bills {
		row := i + 2
		values := []interface{}{
			b.Year, b.Month, b.Member.FirstName, b.Member.LastName,
			b.Member.Street, b.Member.Zip + " " + b.Member.City,
			b.TotalConsumptionKWh, b.LocalConsumptionKWh, b.GridConsumptionKWh,
			b.LocalRate, b.GridRate,
			b.LocalCost, b.GridCost, b.TotalCost,
			b.TotalProductionKWh, b.LocalSellKWh, b.GridExportKWh, b.GridSellRate,
			b.LocalSellRevenue, b.GridExportRevenue, b.TotalRevenue,
			b.TotalFees, b.VATAmount, b.GrandTotal,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(summary, cell, v)
		}
	}

	for _, b := range bills {
		if len(b.DailyDetails) == 0 {
			continue
		}
		sheet := b.Member.LastName + " " + b.Member.FirstName
		if len(sheet) > 31 {
			sheet = sheet[:31]
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		headers := []string{"day", "local_kwh", "grid_kwh", "total_kwh", "local_cost", "grid_cost", "total_cost"}
		for col, h := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, h)
		}
		for i, d := range b.DailyDetails {
			row := i + 2
			values := []interface{}{
				fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day),
				d.LocalConsumptionKWh, d.GridConsumptionKWh, d.TotalConsumptionKWh,
				d.LocalCost, d.GridCost, d.TotalCost,
			}
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return nil, err
				}
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
