// transform.go
package processor

import (
	"BikeDemandPrep/src/config"
	"BikeDemandPrep/src/storage"
	"BikeDemandPrep/src/utils"
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrColumnNotFound 所需列不存在
var ErrColumnNotFound = errors.New("列不存在")

// Binner 按固定阈值分箱，区间左开右闭: (-inf, t0], (t0, t1], ..., (tn, +inf)
type Binner struct {
	Thresholds []float64
	Labels     []string
}

// Label 返回v所在区间的标签，v为NaN时ok为false
func (b Binner) Label(v float64) (label string, ok bool) {
	if math.IsNaN(v) || len(b.Labels) != len(b.Thresholds)+1 {
		return "", false
	}
	for i, th := range b.Thresholds {
		if v <= th {
			return b.Labels[i], true
		}
	}
	return b.Labels[len(b.Labels)-1], true
}

// Transformer 负责重命名、填充空值和派生需求等级
type Transformer struct {
	Rename       map[string]string
	SourceColumn string
	TargetColumn string
	Binner       Binner
	logger       *storage.Logger
}

func NewTransformer(cfg *config.Config, logger *storage.Logger) *Transformer {
	return &Transformer{
		Rename:       cfg.Columns.Rename,
		SourceColumn: cfg.Demand.SourceColumn,
		TargetColumn: cfg.Demand.TargetColumn,
		Binner: Binner{
			Thresholds: cfg.Demand.Thresholds,
			Labels:     cfg.Demand.Labels,
		},
		logger: logger,
	}
}

// Transform 清洗与转换，返回新的DataFrame
func (t *Transformer) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	t.logger.Info("--> 开始清洗与转换...")

	// 1. 重命名
	df = RenameColumns(df, t.Rename)
	if df.Err != nil {
		return df, fmt.Errorf("重命名列失败: %w", df.Err)
	}

	// 2. 检查空值
	missing := CountMissing(df)
	if missing > 0 {
		t.logger.Warning(fmt.Sprintf("    发现 %d 个空值，使用前向填充...", missing))
		var err error
		df, err = ForwardFill(df)
		if err != nil {
			return df, err
		}
		if left := CountMissing(df); left > 0 {
			t.logger.Warning(fmt.Sprintf("    前向填充后仍有 %d 个空值(位于列首，无可用的前值)", left))
		}
	} else {
		t.logger.Info("    未发现空值")
	}

	// 3. 派生需求等级
	df, err := DeriveCategory(df, t.SourceColumn, t.TargetColumn, t.Binner)
	if err != nil {
		return df, err
	}
	return df, nil
}

// RenameColumns 按映射重命名，未映射的列保持不变，列顺序不变
func RenameColumns(df dataframe.DataFrame, mapping map[string]string) dataframe.DataFrame {
	for _, name := range df.Names() {
		newName, ok := mapping[name]
		if !ok || newName == name {
			continue
		}
		df = df.Rename(newName, name)
	}
	return df
}

// CountMissing 统计所有列的缺失值个数
func CountMissing(df dataframe.DataFrame) int {
	total := 0
	for _, name := range df.Names() {
		col := df.Col(name)
		for i := 0; i < col.Len(); i++ {
			if utils.IsMissing(col.Elem(i)) {
				total++
			}
		}
	}
	return total
}

// ForwardFill 用同列中最近的前一个非空值填充空值，列首的空值保持为空
func ForwardFill(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, name := range df.Names() {
		col := df.Col(name) // Col返回副本
		var last series.Element
		changed := false

		for i := 0; i < col.Len(); i++ {
			e := col.Elem(i)
			if !utils.IsMissing(e) {
				last = e
				continue
			}
			if last != nil {
				e.Set(last)
				changed = true
			}
		}

		if changed {
			df = df.Mutate(col)
			if df.Err != nil {
				return df, fmt.Errorf("填充列 %s 失败: %w", name, df.Err)
			}
		}
	}
	return df, nil
}

// DeriveCategory 由数值列分箱得到分类列，数值缺失时分类同样缺失
func DeriveCategory(df dataframe.DataFrame, source, target string, b Binner) (dataframe.DataFrame, error) {
	if !utils.HasColumn(df, source) {
		return df, fmt.Errorf("%w: %s", ErrColumnNotFound, source)
	}

	values := df.Col(source).Float()
	labels := make([]string, len(values))
	for i, v := range values {
		label, ok := b.Label(v)
		if !ok {
			labels[i] = "NaN"
			continue
		}
		labels[i] = label
	}

	df = df.Mutate(series.New(labels, series.String, target))
	if df.Err != nil {
		return df, fmt.Errorf("添加列 %s 失败: %w", target, df.Err)
	}
	return df, nil
}
