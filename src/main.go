package main

import (
	"BikeDemandPrep/src/config"
	"BikeDemandPrep/src/datasource/file"
	"BikeDemandPrep/src/processor"
	"BikeDemandPrep/src/storage"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// errFailed 流程失败且已记录日志
var errFailed = errors.New("预处理失败")

var flags struct {
	config   string
	input    string
	output   string
	seed     int64
	testSize float64
	xlsx     bool
}

var rootCmd = &cobra.Command{
	Use:   "bikeprep",
	Short: "共享单车日数据预处理: 清洗、派生需求等级、分层切分训练/测试集",
	Long: "读取原始日租赁数据，重命名列并前向填充空值，根据total_rentas派生demanda_nivel(Baja/Media/Alta)，" +
		"按season分层抽样切分为70%训练集和30%测试集，写出train_set.csv和test_set.csv。",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logPath := ""
		if cfg.LogName != "" {
			if logPath, err = cfg.ResolvePath(cfg.LogName); err != nil {
				return err
			}
		}
		logger, err := storage.NewLogger(logPath, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer logger.Close()

		if err := run(cfg, logger); err != nil {
			logger.Fatal(fmt.Sprintf("[严重错误]: %v", err))
			return errFailed
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flags.config, "config", "c", "", "JSON配置文件路径，不指定时使用内置配置")
	rootCmd.Flags().StringVarP(&flags.input, "input", "i", "", "原始数据文件(覆盖raw_data_path)")
	rootCmd.Flags().StringVarP(&flags.output, "output", "o", "", "输出目录(覆盖processed_dir)")
	rootCmd.Flags().Int64Var(&flags.seed, "seed", 42, "随机种子(覆盖split.seed)")
	rootCmd.Flags().Float64Var(&flags.testSize, "test-size", 0.3, "测试集比例(覆盖split.test_size)")
	rootCmd.Flags().BoolVar(&flags.xlsx, "xlsx", false, "同时导出xlsx(覆盖export_xlsx)")
}

// loadConfig 读取配置并用命令行参数覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if flags.config != "" {
		var err error
		cfg, err = config.LoadConfig(filepath.Dir(flags.config), filepath.Base(flags.config))
		if err != nil {
			return nil, err
		}
	}

	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.RawDataPath = flags.input
	}
	if fs.Changed("output") {
		cfg.ProcessedDir = flags.output
	}
	if fs.Changed("seed") {
		cfg.Split.Seed = flags.seed
	}
	if fs.Changed("test-size") {
		cfg.Split.TestSize = flags.testSize
	}
	if fs.Changed("xlsx") {
		cfg.ExportXLSX = flags.xlsx
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runReport 写入split_report.json的内容
type runReport struct {
	RunID    string  `json:"run_id"`
	Input    string  `json:"input"`
	Seed     int64   `json:"seed"`
	TestSize float64 `json:"test_size"`
	processor.Report
}

// run 依次执行加载、清洗、分层抽样、保存，遇到第一个错误即返回
func run(cfg *config.Config, logger *storage.Logger) error {
	runID := uuid.New().String()
	logger.Info("运行ID: " + runID)

	rawPath, err := cfg.ResolvePath(cfg.RawDataPath)
	if err != nil {
		return err
	}
	outDir, err := cfg.ResolvePath(cfg.ProcessedDir)
	if err != nil {
		return err
	}

	// 1. 加载
	df, err := file.Load(rawPath, file.Options{
		Delimiter: []rune(cfg.Delimiter)[0],
		Encoding:  cfg.Encoding,
		SheetName: cfg.SheetName,
		HeaderRow: cfg.HeaderRow,
	}, logger)
	if err != nil {
		return err
	}

	// 2. 清洗与转换
	df, err = processor.NewTransformer(cfg, logger).Transform(df)
	if err != nil {
		return err
	}

	// 3. 分层抽样
	train, test, report, err := processor.NewSplitter(cfg, logger).Split(df)
	if err != nil {
		return err
	}

	// 4. 保存
	w := storage.NewWriter(outDir, cfg.ExportXLSX, logger)
	if err := w.Write(train, test); err != nil {
		return err
	}
	return w.WriteReport(runReport{
		RunID:    runID,
		Input:    rawPath,
		Seed:     cfg.Split.Seed,
		TestSize: cfg.Split.TestSize,
		Report:   report,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "\n[严重错误]: %v\n", err)
		}
		os.Exit(1)
	}
}
