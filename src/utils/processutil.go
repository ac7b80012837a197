package utils

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// HasColumn 判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// IsMissing 判断元素是否为缺失值，字符串列的空串同样视为缺失
func IsMissing(e series.Element) bool {
	return e.IsNA() || (e.Type() == series.String && e.String() == "")
}

// Subset 按行号取子集，空行号时返回只有列结构的DataFrame
func Subset(df dataframe.DataFrame, indexes []int) dataframe.DataFrame {
	if len(indexes) > 0 {
		return df.Subset(indexes)
	}

	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, series.New([]string{}, df.Col(name).Type(), name))
	}
	return dataframe.New(cols...)
}

// SaveToExcel 将DataFrame写入xlsx，缺失值留空
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < col.Len(); rowIdx++ {
			e := col.Elem(rowIdx)
			if e.IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, e.Val())
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}
