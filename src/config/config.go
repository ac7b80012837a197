package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config 结构体定义了预处理流程的配置结构
type Config struct {
	BaseDir      string `json:"base_dir"`      // 相对路径的基准目录，为空时以可执行文件所在目录为准
	BaseLevel    int    `json:"base_level"`    // 从可执行文件向上回退的层数
	RawDataPath  string `json:"raw_data_path"` // 原始数据文件
	ProcessedDir string `json:"processed_dir"` // 输出目录
	SheetName    string `json:"sheet_name"`    // xlsx输入时的工作表名
	HeaderRow    int    `json:"header_row"`    // xlsx输入时标题所在行(从0开始)
	Encoding     string `json:"encoding"`      // 输入文件编码
	Delimiter    string `json:"delimiter"`     // 分隔符
	LogName      string `json:"log_name"`      // 日志文件，为空时只输出到控制台
	ExportXLSX   bool   `json:"export_xlsx"`   // 是否额外导出xlsx

	Columns struct {
		Rename map[string]string `json:"rename"` // 原列名 -> 新列名
	} `json:"columns"`

	Split struct {
		TestSize       float64 `json:"test_size"`
		Seed           int64   `json:"seed"`
		StratifyColumn string  `json:"stratify_column"`
	} `json:"split"`

	Demand struct {
		SourceColumn string    `json:"source_column"`
		TargetColumn string    `json:"target_column"`
		Thresholds   []float64 `json:"thresholds"`
		Labels       []string  `json:"labels"`
	} `json:"demand"`
}

var (
	once     sync.Once
	instance *Config
)

// Default 返回内置配置，与原始数据集的列名保持一致
func Default() *Config {
	cfg := &Config{
		BaseLevel:    1,
		RawDataPath:  filepath.Join("data", "raw", "day.csv"),
		ProcessedDir: filepath.Join("data", "processed"),
		Delimiter:    ",",
	}
	cfg.Columns.Rename = map[string]string{
		"dteday":     "fecha",
		"yr":         "anio",
		"mnth":       "mes",
		"weathersit": "clima_cat", // 1: 晴 2: 多云 3: 雨/雪
		"hum":        "humedad",
		"cnt":        "total_rentas",
	}
	cfg.Split.TestSize = 0.3
	cfg.Split.Seed = 42
	cfg.Split.StratifyColumn = "season"
	cfg.Demand.SourceColumn = "total_rentas"
	cfg.Demand.TargetColumn = "demanda_nivel"
	cfg.Demand.Thresholds = []float64{3000, 6000}
	cfg.Demand.Labels = []string{"Baja", "Media", "Alta"}
	return cfg
}

// LoadConfig 在进程内只加载一次配置
func LoadConfig(jsonFolder, jsonFile string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = ReadConfig(filepath.Join(jsonFolder, jsonFile))
	})
	return instance, err
}

// ReadConfig 读取并校验配置文件，文件中未出现的字段沿用Default的值
func ReadConfig(configFile string) (*Config, error) {
	data, err := readFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析JSON配置
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// map会与默认值合并，这里先置空，未配置时再还原
	rename := cfg.Columns.Rename
	cfg.Columns.Rename = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析Config失败: %w", err)
	}
	if cfg.Columns.Rename == nil {
		cfg.Columns.Rename = rename
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// Validate 检查配置是否可用，多个问题一次性返回
func (c *Config) Validate() error {
	var errs []error

	if c.RawDataPath == "" {
		errs = append(errs, errors.New("raw_data_path 不能为空"))
	}
	if c.ProcessedDir == "" {
		errs = append(errs, errors.New("processed_dir 不能为空"))
	}
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		errs = append(errs, fmt.Errorf("split.test_size 必须在(0,1)之间: %v", c.Split.TestSize))
	}
	if c.Split.StratifyColumn == "" {
		errs = append(errs, errors.New("split.stratify_column 不能为空"))
	}
	if len([]rune(c.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("delimiter 必须是单个字符: %q", c.Delimiter))
	}
	if c.Demand.SourceColumn == "" || c.Demand.TargetColumn == "" {
		errs = append(errs, errors.New("demand.source_column 和 demand.target_column 不能为空"))
	}
	for i := 1; i < len(c.Demand.Thresholds); i++ {
		if c.Demand.Thresholds[i] <= c.Demand.Thresholds[i-1] {
			errs = append(errs, fmt.Errorf("demand.thresholds 必须严格递增: %v", c.Demand.Thresholds))
			break
		}
	}
	if len(c.Demand.Labels) != len(c.Demand.Thresholds)+1 {
		errs = append(errs, fmt.Errorf("demand.labels 数量应为 %d, 实际为 %d",
			len(c.Demand.Thresholds)+1, len(c.Demand.Labels)))
	}

	return combineErrors(errs)
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置校验遇到错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// ResolvePath 将相对路径解析为绝对路径
// 优先使用base_dir，否则从可执行文件所在位置向上回退base_level层
func (c *Config) ResolvePath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	if c.BaseDir != "" {
		base, err := filepath.Abs(c.BaseDir)
		if err != nil {
			return "", fmt.Errorf("解析base_dir失败: %w", err)
		}
		return filepath.Join(base, p), nil
	}
	return GetTargetFolder(p, c.BaseLevel)
}

// GetTargetFolder 获取相对于可执行文件的目标路径
func GetTargetFolder(folderName string, level int) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	path := exePath
	for i := 0; i < level; i++ {
		path = filepath.Dir(path)
	}

	return filepath.Join(path, folderName), nil
}
