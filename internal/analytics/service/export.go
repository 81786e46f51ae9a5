package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet   = "Summary"
	productsSheet  = "Top products"
	customersSheet = "Top customers"
	daysSheet      = "Daily"
)

// ExportSalesReport renders a stored report as an XLSX workbook.
func (s *Service) ExportSalesReport(ctx context.Context, id snowflake.ID) ([]byte, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("close workbook", zap.Error(err))
		}
	}()
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Report type", string(report.ReportType)},
		{"Period start", report.PeriodStart.String()},
		{"Period end", report.PeriodEnd.String()},
		{"Total sales", report.TotalSales.InexactFloat64()},
		{"Total orders", report.TotalOrders},
		{"Items sold", report.TotalItemsSold},
		{"Sales growth %", report.SalesGrowth.InexactFloat64()},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "B4", "B4", money); err != nil {
		return nil, err
	}

	products := [][]any{{"Product", "Quantity", "Revenue"}}
	for _, p := range report.TopProducts {
		products = append(products, []any{p.ProductName, p.Quantity, p.Revenue.InexactFloat64()})
	}
	if err := writeSheet(f, productsSheet, products, "C", money); err != nil {
		return nil, err
	}

	customers := [][]any{{"Customer", "Orders", "Total"}}
	for _, c := range report.TopCustomers {
		customers = append(customers, []any{c.Name, c.Orders, c.Total.InexactFloat64()})
	}
	if err := writeSheet(f, customersSheet, customers, "C", money); err != nil {
		return nil, err
	}

	days := [][]any{{"Date", "Orders", "Sales"}}
	for _, d := range report.DetailedData.Data().Days {
		days = append(days, []any{d.Date, d.Orders, d.Sales.InexactFloat64()})
	}
	if err := writeSheet(f, daysSheet, days, "C", money); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, moneyCol string, money int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	if len(rows) < 2 {
		return nil
	}
	return f.SetCellStyle(sheet, moneyCol+"2", fmt.Sprintf("%s%d", moneyCol, len(rows)), money)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
