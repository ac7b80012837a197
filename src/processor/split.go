// split.go
package processor

import (
	"BikeDemandPrep/src/config"
	"BikeDemandPrep/src/storage"
	"BikeDemandPrep/src/utils"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
)

// Splitter 分层抽样，按分层列的每个取值分别打乱并切分
type Splitter struct {
	Column   string
	TestSize float64
	Seed     int64
	logger   *storage.Logger
}

func NewSplitter(cfg *config.Config, logger *storage.Logger) *Splitter {
	return &Splitter{
		Column:   cfg.Split.StratifyColumn,
		TestSize: cfg.Split.TestSize,
		Seed:     cfg.Split.Seed,
		logger:   logger,
	}
}

// Split 返回训练集、测试集和比例校验报告
func (s *Splitter) Split(df dataframe.DataFrame) (train, test dataframe.DataFrame, report Report, err error) {
	s.logger.Info("--> 生成代表性样本(分层抽样)...")

	if !utils.HasColumn(df, s.Column) {
		return train, test, report, fmt.Errorf("%w: %s", ErrColumnNotFound, s.Column)
	}
	if s.TestSize <= 0 || s.TestSize >= 1 {
		return train, test, report, fmt.Errorf("test_size 必须在(0,1)之间: %v", s.TestSize)
	}

	keys := df.Col(s.Column).Records()
	groups := GroupIndices(keys)
	for _, g := range groups {
		if len(g.Indices) == 1 {
			s.logger.Warning(fmt.Sprintf("    %s=%s 只有1行，无法切分，整体归入测试集", s.Column, g.Key))
		}
	}

	trainIdx, testIdx := StratifiedIndices(groups, s.TestSize, s.Seed)
	train = utils.Subset(df, trainIdx)
	test = utils.Subset(df, testIdx)
	if train.Err != nil {
		return train, test, report, fmt.Errorf("生成训练集失败: %w", train.Err)
	}
	if test.Err != nil {
		return train, test, report, fmt.Errorf("生成测试集失败: %w", test.Err)
	}

	report = NewReport(s.Column, groups, trainIdx, testIdx)
	s.logger.Info(fmt.Sprintf("    训练集大小: %d 行", train.Nrow()))
	s.logger.Info(fmt.Sprintf("    测试集大小: %d 行", test.Nrow()))
	for _, c := range report.Categories {
		s.logger.Info(fmt.Sprintf("    %s=%s 总体 %.2f%% 训练 %.2f%% 测试 %.2f%%",
			s.Column, c.Category, c.TotalShare*100, c.TrainShare*100, c.TestShare*100))
	}
	return train, test, report, nil
}

// Group 同一分层取值的行号
type Group struct {
	Key     string
	Indices []int
}

// GroupIndices 按取值分组，组的顺序为取值首次出现的顺序
func GroupIndices(keys []string) []Group {
	pos := make(map[string]int)
	var groups []Group
	for i, k := range keys {
		p, ok := pos[k]
		if !ok {
			p = len(groups)
			pos[k] = p
			groups = append(groups, Group{Key: k})
		}
		groups[p].Indices = append(groups[p].Indices, i)
	}
	return groups
}

// StratifiedIndices 每组用同一个带种子的随机源打乱后，前floor(n*(1-testSize))行进训练集
// 组内行数>=2时两边至少各有一行，只有一行的组归入测试集
func StratifiedIndices(groups []Group, testSize float64, seed int64) (train, test []int) {
	r := rand.New(rand.NewSource(seed))

	for _, g := range groups {
		idx := make([]int, len(g.Indices))
		copy(idx, g.Indices)
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		n := len(idx)
		nTrain := int(math.Floor(float64(n)*(1-testSize) + 1e-9))
		if n >= 2 {
			nTrain = max(1, min(nTrain, n-1))
		}

		train = append(train, idx[:nTrain]...)
		test = append(test, idx[nTrain:]...)
	}
	return train, test
}

// CategoryShare 某个取值在各集合中的行数与占比
type CategoryShare struct {
	Category   string  `json:"category"`
	Total      int     `json:"total"`
	Train      int     `json:"train"`
	Test       int     `json:"test"`
	TotalShare float64 `json:"total_share"`
	TrainShare float64 `json:"train_share"`
	TestShare  float64 `json:"test_share"`
}

// Report 分层比例校验结果
type Report struct {
	Column     string          `json:"column"`
	Total      int             `json:"total"`
	Train      int             `json:"train"`
	Test       int             `json:"test"`
	Categories []CategoryShare `json:"categories"`
}

func NewReport(column string, groups []Group, trainIdx, testIdx []int) Report {
	inTrain := make(map[int]bool, len(trainIdx))
	for _, i := range trainIdx {
		inTrain[i] = true
	}

	report := Report{
		Column: column,
		Train:  len(trainIdx),
		Test:   len(testIdx),
	}
	report.Total = report.Train + report.Test

	for _, g := range groups {
		c := CategoryShare{Category: g.Key, Total: len(g.Indices)}
		for _, i := range g.Indices {
			if inTrain[i] {
				c.Train++
			}
		}
		c.Test = c.Total - c.Train
		c.TotalShare = share(c.Total, report.Total)
		c.TrainShare = share(c.Train, report.Train)
		c.TestShare = share(c.Test, report.Test)
		report.Categories = append(report.Categories, c)
	}
	return report
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
