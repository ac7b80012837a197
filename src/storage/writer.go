package storage

import (
	"BikeDemandPrep/src/utils"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

// 输出文件名
const (
	TrainFile  = "train_set.csv"
	TestFile   = "test_set.csv"
	ReportFile = "split_report.json"
)

// Writer 将训练集和测试集写入输出目录，已有文件直接覆盖
type Writer struct {
	Dir        string
	ExportXLSX bool
	logger     *Logger
}

func NewWriter(dir string, exportXLSX bool, logger *Logger) *Writer {
	return &Writer{Dir: dir, ExportXLSX: exportXLSX, logger: logger}
}

// Write 写入train_set.csv和test_set.csv，开启ExportXLSX时同时写xlsx
func (w *Writer) Write(train, test dataframe.DataFrame) error {
	if err := ensureDir(w.Dir); err != nil {
		return err
	}

	sets := []struct {
		name string
		df   dataframe.DataFrame
	}{
		{TrainFile, train},
		{TestFile, test},
	}
	for _, s := range sets {
		path := filepath.Join(w.Dir, s.name)
		if err := WriteCSV(s.df, path); err != nil {
			return err
		}
		if w.ExportXLSX {
			xlsxPath := path[:len(path)-len(filepath.Ext(path))] + ".xlsx"
			if err := utils.SaveToExcel(s.df, xlsxPath); err != nil {
				return err
			}
		}
	}

	w.logger.Info(fmt.Sprintf("--> 成功! 文件已生成于: %s", w.Dir))
	w.logger.Info("    1. " + TrainFile + " (用于决策树、聚类和关联规则)")
	w.logger.Info("    2. " + TestFile + " (仅用于最终指标验证)")
	return nil
}

// WriteReport 将切分报告写为json
func (w *Writer) WriteReport(report any) error {
	if err := ensureDir(w.Dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}
	path := filepath.Join(w.Dir, ReportFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// WriteCSV 以带标题、不含索引的csv写出DataFrame
func WriteCSV(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer f.Close()

	if err := df.WriteCSV(f, dataframe.WriteHeader(true)); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return f.Close()
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	return nil
}
