package market

import "fmt"

// Validate checks the caller contract on a candle series before a run starts:
// non-empty, strictly increasing timestamps, and OHLC ranges that contain
// their own open/close. Engines assume a validated series and never re-check
// mid-walk.
func Validate(candles []Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("market: empty candle series")
	}

	for i, c := range candles {
		if i > 0 && c.Time <= candles[i-1].Time {
			return fmt.Errorf("market: non-monotonic timestamp at index %d: %d <= %d",
				i, c.Time, candles[i-1].Time)
		}
		if c.High < c.Low {
			return fmt.Errorf("market: candle %d has high %.6f below low %.6f", i, c.High, c.Low)
		}
		if c.Open > c.High || c.Open < c.Low {
			return fmt.Errorf("market: candle %d open %.6f outside [low, high]", i, c.Open)
		}
		if c.Close > c.High || c.Close < c.Low {
			return fmt.Errorf("market: candle %d close %.6f outside [low, high]", i, c.Close)
		}
	}

	return nil
}
