package processor

import (
	"BikeDemandPrep/src/config"
	"BikeDemandPrep/src/storage"
	"bytes"
	"errors"
	"io"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func discardLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger("", io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

func TestBinnerLabel(t *testing.T) {
	b := Binner{Thresholds: []float64{3000, 6000}, Labels: []string{"Baja", "Media", "Alta"}}
	tests := []struct {
		v    float64
		want string
	}{
		{0, "Baja"},
		{22, "Baja"},
		{3000, "Baja"},
		{3001, "Media"},
		{6000, "Media"},
		{6001, "Alta"},
		{8714, "Alta"},
	}
	for _, tt := range tests {
		got, ok := b.Label(tt.v)
		if !ok || got != tt.want {
			t.Errorf("Label(%v) = %q, %v; want %q", tt.v, got, ok, tt.want)
		}
	}
	if _, ok := b.Label(math.NaN()); ok {
		t.Error("NaN不应有标签")
	}
}

func TestRenameColumns(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"instant", "dteday", "season", "cnt", "casual"},
		{"1", "2011-01-01", "1", "985", "331"},
		{"2", "2011-01-02", "1", "801", "131"},
	})

	out := RenameColumns(df, config.Default().Columns.Rename)
	if out.Err != nil {
		t.Fatal(out.Err)
	}
	want := []string{"instant", "fecha", "season", "total_rentas", "casual"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %q, want %q", got, want)
	}
	if got := out.Col("fecha").Records(); !reflect.DeepEqual(got, []string{"2011-01-01", "2011-01-02"}) {
		t.Errorf("行顺序改变: %q", got)
	}
	if out.Nrow() != df.Nrow() {
		t.Errorf("nrow = %d", out.Nrow())
	}
}

func TestForwardFill(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"5", "NaN", "NaN", "8"}, series.Int, "a"),
		series.New([]string{"NaN", "5", "NaN", "7"}, series.Float, "b"),
		series.New([]string{"x", "", "NaN", "y"}, series.String, "c"),
	)
	if got := CountMissing(df); got != 6 {
		t.Fatalf("CountMissing = %d, want 6", got)
	}

	out, err := ForwardFill(df)
	if err != nil {
		t.Fatal(err)
	}
	if out.Nrow() != 4 {
		t.Fatalf("nrow = %d", out.Nrow())
	}

	if got := out.Col("a").Records(); !reflect.DeepEqual(got, []string{"5", "5", "5", "8"}) {
		t.Errorf("a = %q", got)
	}

	b := out.Col("b")
	if !b.Elem(0).IsNA() {
		t.Error("列首空值应保持为空")
	}
	if got := b.Float()[1:]; !reflect.DeepEqual(got, []float64{5, 5, 7}) {
		t.Errorf("b = %v", got)
	}

	if got := out.Col("c").Records(); !reflect.DeepEqual(got, []string{"x", "x", "x", "y"}) {
		t.Errorf("c = %q", got)
	}
	if got := CountMissing(out); got != 1 {
		t.Errorf("填充后 CountMissing = %d, want 1", got)
	}

	// 原DataFrame不受影响
	if !df.Col("a").Elem(1).IsNA() {
		t.Error("ForwardFill 修改了输入")
	}
}

func TestDeriveCategory(t *testing.T) {
	df := dataframe.New(
		series.New([]int{3000, 3001, 6000, 6001}, series.Int, "total_rentas"),
	)

	b := Binner{Thresholds: []float64{3000, 6000}, Labels: []string{"Baja", "Media", "Alta"}}
	out, err := DeriveCategory(df, "total_rentas", "demanda_nivel", b)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Baja", "Media", "Media", "Alta"}
	if got := out.Col("demanda_nivel").Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("demanda_nivel = %q, want %q", got, want)
	}

	_, err = DeriveCategory(df, "cnt", "demanda_nivel", b)
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestDeriveCategoryMissing(t *testing.T) {
	df := dataframe.New(series.New([]string{"NaN", "100"}, series.Int, "total_rentas"))

	b := Binner{Thresholds: []float64{3000, 6000}, Labels: []string{"Baja", "Media", "Alta"}}
	out, err := DeriveCategory(df, "total_rentas", "demanda_nivel", b)
	if err != nil {
		t.Fatal(err)
	}
	col := out.Col("demanda_nivel")
	if !col.Elem(0).IsNA() || col.Elem(1).String() != "Baja" {
		t.Errorf("demanda_nivel = %q", col.Records())
	}
}

func TestTransform(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"dteday", "season", "yr", "mnth", "weathersit", "hum", "cnt"},
		{"2011-01-01", "1", "0", "1", "2", "0.8", "985"},
		{"2011-01-02", "1", "0", "1", "2", "NaN", "3500"},
		{"2011-01-03", "1", "0", "1", "1", "0.4", "6500"},
	})

	var buf bytes.Buffer
	logger, _ := storage.NewLogger("", &buf)
	tr := NewTransformer(config.Default(), logger)

	out, err := tr.Transform(df)
	if err != nil {
		t.Fatal(err)
	}

	wantNames := []string{"fecha", "season", "anio", "mes", "clima_cat", "humedad", "total_rentas", "demanda_nivel"}
	if got := out.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("names = %q", got)
	}
	if got := out.Col("humedad").Float()[1]; got != 0.8 {
		t.Errorf("humedad[1] = %v, want 0.8", got)
	}
	if got := out.Col("demanda_nivel").Records(); !reflect.DeepEqual(got, []string{"Baja", "Media", "Alta"}) {
		t.Errorf("demanda_nivel = %q", got)
	}
	if !strings.Contains(buf.String(), "发现 1 个空值") {
		t.Errorf("缺少空值提示: %s", buf.String())
	}
}

func TestTransformClean(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"dteday", "cnt"},
		{"2011-01-01", "985"},
	})

	var buf bytes.Buffer
	logger, _ := storage.NewLogger("", &buf)
	if _, err := NewTransformer(config.Default(), logger).Transform(df); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "未发现空值") {
		t.Errorf("got %s", buf.String())
	}
}
