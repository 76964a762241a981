package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads a candle series from a CSV file with rows:
//
//	time,open,high,low,close,volume[,adj_close]
//
// where time is RFC3339 or unix seconds. A single header row is allowed.
// Empty and short rows are skipped. The returned series is validated.
func LoadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses candle rows from r. See LoadCSV for the row format.
func ReadCSV(rdr io.Reader) ([]Candle, error) {
	r := csv.NewReader(rdr)
	r.FieldsPerRecord = -1

	var candles []Candle
	sawFirst := false

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		c, ok, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		candles = append(candles, c)
	}

	if err := Validate(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func parseCandleRow(row []string) (Candle, bool, error) {
	if len(row) < 6 {
		return Candle{}, false, nil
	}

	ts, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Candle{}, false, fmt.Errorf("market: bad time %q: %w", row[0], err)
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return Candle{}, false, fmt.Errorf("market: bad price %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	vol, err := strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64)
	if err != nil {
		return Candle{}, false, fmt.Errorf("market: bad volume %q: %w", row[5], err)
	}

	c := Candle{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vol,
	}

	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		adj, err := strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		if err != nil {
			return Candle{}, false, fmt.Errorf("market: bad adj_close %q: %w", row[6], err)
		}
		c.AdjClose = adj
	}

	return c, true, nil
}

func parseTime(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return secs, nil
	}
	return 0, fmt.Errorf("want RFC3339 or unix seconds")
}
