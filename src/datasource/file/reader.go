// reader.go
package file

import (
	"BikeDemandPrep/src/storage"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrMissingInput 输入文件不存在
var ErrMissingInput = errors.New("未找到输入文件")

const Number string = "^[0-9]+(\\.[0-9]+)?$"

var numberRe = regexp.MustCompile(Number)

// NaNValues 读入时视为缺失值的记录
var NaNValues = []string{"", "NA", "NaN", "<nil>"}

// Options 读取选项
type Options struct {
	Delimiter rune   // csv分隔符，0时为逗号
	Encoding  string // 输入编码，为空时按UTF-8处理(自动去除BOM)
	SheetName string // xlsx工作表，为空时取第一个
	HeaderRow int    // xlsx标题所在行
}

// Load 读取原始数据文件，根据扩展名选择csv或xlsx
func Load(path string, opts Options, logger *storage.Logger) (dataframe.DataFrame, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return dataframe.DataFrame{}, fmt.Errorf("检查输入文件失败: %w", err)
	}
	if info.IsDir() {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s 是目录", ErrMissingInput, path)
	}

	logger.Info(fmt.Sprintf("--> 从 %s 加载数据", path))

	var df dataframe.DataFrame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		df, err = ReadXLSX(path, opts.SheetName, opts.HeaderRow)
	default:
		df, err = ReadCSVFile(path, opts)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	logger.Info(fmt.Sprintf("    读取 %d 行 %d 列", df.Nrow(), df.Ncol()))
	return df, nil
}

// ReadCSVFile 打开并解码csv文件
func ReadCSVFile(path string, opts Options) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开输入文件失败: %w", err)
	}
	defer f.Close()

	dec, err := decoder(opts.Encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df, err := ReadCSV(transform.NewReader(f, dec), opts.Delimiter)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return df, nil
}

// ReadCSV 将csv内容读入DataFrame，类型由gota自动推断
func ReadCSV(r io.Reader, delimiter rune) (dataframe.DataFrame, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithDelimiter(delimiter),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// decoder 根据名称返回对应的解码器
func decoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "gbk":
		return simplifiedchinese.GBK.NewDecoder(), nil
	case "gb18030":
		return simplifiedchinese.GB18030.NewDecoder(), nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", name)
	}
}

// ReadXLSX 读取xlsx工作表并转为DataFrame
func ReadXLSX(filePath, sheetName string, headerRow int) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	records, err := sheetToRecords(sheet, headerRow)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NaNValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

// sheetToRecords 将工作表转为二维字符串，日期列的Excel序列号转为日期
func sheetToRecords(sheet *xlsx.Sheet, headerRow int) ([][]string, error) {
	if headerRow < 0 || headerRow >= len(sheet.Rows) {
		return nil, fmt.Errorf("标题行 %d 超出范围(共 %d 行)", headerRow, len(sheet.Rows))
	}

	var headers []string
	for _, cell := range sheet.Rows[headerRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	dateCols := findTimeColumns(headers)

	records := [][]string{headers}
	for _, row := range sheet.Rows[headerRow+1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) { // 确保不超出列数范围
				break
			}
			v := cell.Value
			if dateCols[i] {
				v = excelToDate(v)
			}
			if v != "" {
				empty = false
			}
			record[i] = v
		}
		if !empty {
			records = append(records, record)
		}
	}
	return records, nil
}

// findTimeColumns 查找可能是日期类型的列
func findTimeColumns(headers []string) map[int]bool {
	cols := make(map[int]bool)
	timeKeywords := []string{"date", "dteday", "fecha", "日期"}

	for i, col := range headers {
		lower := strings.ToLower(col)
		for _, kw := range timeKeywords {
			if strings.Contains(lower, kw) {
				cols[i] = true
				break
			}
		}
	}
	return cols
}

// excelToDate Excel日期序列号转为2006-01-02格式，非数值原样返回
func excelToDate(v string) string {
	if !numberRe.MatchString(v) {
		return v
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}

	// 1899-12-30为基准可同时修正Excel的1900闰年问题(序列号>=61)
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(serial)).Format("2006-01-02")
}
