package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fundarb/internal/domain/model"
)

// Columns CSV 列顺序
var Columns = []string{
	"FECHA", "HORA", "PAR", "VALOR_OP", "LEVERAGE",
	"LONG_EXCH", "LONG_RATE", "LONG_NEXT", "LONG_INTERVAL", "LONG_VOL_1M", "LONG_FEE_TAKER", "LONG_FEE_MAKER",
	"SHORT_EXCH", "SHORT_RATE", "SHORT_NEXT", "SHORT_INTERVAL", "SHORT_VOL_1M", "SHORT_FEE_TAKER", "SHORT_FEE_MAKER",
	"SPREAD", "ASYMMETRIC",
}

// Meta 每行共享的报表字段
type Meta struct {
	ScanTime     time.Time
	Location     *time.Location
	PositionSize float64
	Leverage     int
}

func (m Meta) loc() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

// Record CSV 中的一行
type Record struct {
	Date          string
	Hour          string
	Pair          string
	PositionSize  float64
	Leverage      int
	LongExchange  string
	LongRate      float64
	LongNext      string
	LongInterval  float64
	LongVolume    float64
	LongTaker     float64
	LongMaker     float64
	ShortExchange string
	ShortRate     float64
	ShortNext     string
	ShortInterval float64
	ShortVolume   float64
	ShortTaker    float64
	ShortMaker    float64
	Spread        float64
	Asymmetric    bool
}

// NewRecord 机会转为报表行
func NewRecord(o model.EnrichedOpportunity, meta Meta) Record {
	loc := meta.loc()
	return Record{
		Date:          meta.ScanTime.In(loc).Format("2006-01-02"),
		Hour:          fmt.Sprintf("%d:00", o.TargetHour),
		Pair:          o.Symbol,
		PositionSize:  meta.PositionSize,
		Leverage:      meta.Leverage,
		LongExchange:  o.LongExchange,
		LongRate:      o.LongRate,
		LongNext:      clock(o.LongNextFunding, loc),
		LongInterval:  o.LongInterval,
		LongVolume:    o.LongVolume1m,
		LongTaker:     o.LongFee.Taker,
		LongMaker:     o.LongFee.Maker,
		ShortExchange: o.ShortExchange,
		ShortRate:     o.ShortRate,
		ShortNext:     clock(o.ShortNextFunding, loc),
		ShortInterval: o.ShortInterval,
		ShortVolume:   o.ShortVolume1m,
		ShortTaker:    o.ShortFee.Taker,
		ShortMaker:    o.ShortFee.Maker,
		Spread:        o.Spread,
		Asymmetric:    o.Asymmetric,
	}
}

func clock(ms int64, loc *time.Location) string {
	if ms <= 0 {
		return "N/A"
	}
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

// Fields 按 Columns 顺序输出
func (r Record) Fields() []string {
	return []string{
		r.Date, r.Hour, r.Pair, num(r.PositionSize), strconv.Itoa(r.Leverage),
		r.LongExchange, num(r.LongRate), r.LongNext, num(r.LongInterval), num(r.LongVolume), num(r.LongTaker), num(r.LongMaker),
		r.ShortExchange, num(r.ShortRate), r.ShortNext, num(r.ShortInterval), num(r.ShortVolume), num(r.ShortTaker), num(r.ShortMaker),
		num(r.Spread), yesNo(r.Asymmetric),
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteCSV 覆盖写入。没有记录时只写表头，旧结果不会残留。
func WriteCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Fields()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ErrNoHeader 文件为空，连表头都没有
var ErrNoHeader = errors.New("csv has no header")

// ReadCSV 按表头定位列。文件不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)，
// 空文件返回 ErrNoHeader，只有表头时返回空切片。
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	out := []Record{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, parseRow(row, idx))
	}
	return out, nil
}

func parseRow(row []string, idx map[string]int) Record {
	s := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	f := func(col string) float64 {
		v, err := strconv.ParseFloat(s(col), 64)
		if err != nil {
			return 0
		}
		return v
	}
	lev, _ := strconv.Atoi(s("LEVERAGE"))

	return Record{
		Date:          s("FECHA"),
		Hour:          s("HORA"),
		Pair:          s("PAR"),
		PositionSize:  f("VALOR_OP"),
		Leverage:      lev,
		LongExchange:  s("LONG_EXCH"),
		LongRate:      f("LONG_RATE"),
		LongNext:      s("LONG_NEXT"),
		LongInterval:  f("LONG_INTERVAL"),
		LongVolume:    f("LONG_VOL_1M"),
		LongTaker:     f("LONG_FEE_TAKER"),
		LongMaker:     f("LONG_FEE_MAKER"),
		ShortExchange: s("SHORT_EXCH"),
		ShortRate:     f("SHORT_RATE"),
		ShortNext:     s("SHORT_NEXT"),
		ShortInterval: f("SHORT_INTERVAL"),
		ShortVolume:   f("SHORT_VOL_1M"),
		ShortTaker:    f("SHORT_FEE_TAKER"),
		ShortMaker:    f("SHORT_FEE_MAKER"),
		Spread:        f("SPREAD"),
		Asymmetric:    isYes(s("ASYMMETRIC")),
	}
}

func isYes(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "sí", "si", "true":
		return true
	}
	return false
}
