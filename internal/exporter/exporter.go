// Package exporter 月度读数年报导出（xlsx）
package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"eedc/internal/model"
	"eedc/internal/store"
)

// Exporter 年报导出器
type Exporter struct {
	store *store.Store
}

// NewExporter 创建导出器
func NewExporter(st *store.Store) *Exporter {
	return &Exporter{store: st}
}

const sheetName = "Jahresbericht"

// Export 导出一个安装一整年的月度读数
// 列布局：月份 | 3 个基础字段 | 每个活跃投资项的声明字段
func (e *Exporter) Export(anlageID string, year int) (*excelize.File, error) {
	anlage, err := e.store.GetAnlage(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取安装失败: %w", err)
	}

	readings, err := e.store.ListReadings(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取月度读数失败: %w", err)
	}
	investments, err := e.store.ListInvestments(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取投资项失败: %w", err)
	}
	invReadings, err := e.store.ListInvestmentReadings(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取投资项读数失败: %w", err)
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// 标题行
	title := fmt.Sprintf("%s — %d", anlage.Name, year)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		_ = f.Close()
		return nil, err
	}

	// 表头
	type column struct {
		header string
		value  func(month int) *float64
	}

	readingByMonth := make(map[int]model.MonthlyReading)
	for _, r := range readings {
		if r.Year == year {
			readingByMonth[r.Month] = r
		}
	}

	invValues := make(map[string]map[int]model.ValueSet)
	for _, r := range invReadings {
		if r.Year != year {
			continue
		}
		byMonth, ok := invValues[r.InvestmentID]
		if !ok {
			byMonth = make(map[int]model.ValueSet)
			invValues[r.InvestmentID] = byMonth
		}
		byMonth[r.Month] = r.Values
	}

	columns := []column{
		{"上网电量 (kWh)", func(m int) *float64 { r := readingByMonth[m]; return r.Einspeisung }},
		{"电网取电量 (kWh)", func(m int) *float64 { r := readingByMonth[m]; return r.Netzbezug }},
		{"光伏发电量 (kWh)", func(m int) *float64 { r := readingByMonth[m]; return r.PVErzeugung }},
	}

	for _, inv := range investments {
		if !inv.Active {
			continue
		}
		inv := inv
		for _, desc := range model.ComponentFieldCatalog(inv.Type) {
			desc := desc
			columns = append(columns, column{
				header: fmt.Sprintf("%s %s (%s)", inv.Label, desc.Label, desc.Unit),
				value: func(m int) *float64 {
					v, ok := invValues[inv.ID][m][desc.Key]
					if !ok {
						return nil
					}
					return &v
				},
			})
		}
	}

	headerRow := 3
	if err := f.SetCellValue(sheetName, cell(0, headerRow), "月份"); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, col := range columns {
		if err := f.SetCellValue(sheetName, cell(i+1, headerRow), col.header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	// 数据行：12 个月固定输出，缺失值留空
	for month := 1; month <= 12; month++ {
		row := headerRow + month
		_ = f.SetCellValue(sheetName, cell(0, row), fmt.Sprintf("%d-%02d", year, month))
		for i, col := range columns {
			if v := col.value(month); v != nil {
				_ = f.SetCellValue(sheetName, cell(i+1, row), *v)
			}
		}
	}

	// 合计行
	sumRow := headerRow + 13
	_ = f.SetCellValue(sheetName, cell(0, sumRow), "合计")
	for i := range columns {
		colName, _ := excelize.ColumnNumberToName(i + 2)
		formula := fmt.Sprintf("SUM(%s%d:%s%d)", colName, headerRow+1, colName, headerRow+12)
		_ = f.SetCellFormula(sheetName, cell(i+1, sumRow), formula)
	}

	return f, nil
}

// cell 0 基列号 + 1 基行号 → A1 形式坐标
func cell(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return fmt.Sprintf("%s%d", name, row)
}
