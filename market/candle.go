// Package market holds the OHLCV data model shared by the backtest engines.
package market

// Candle represents one OHLCV bar. Time is the bar timestamp in unix seconds.
type Candle struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	// AdjClose is the split/dividend adjusted close when the data source
	// supplies one. 0 means not supplied.
	AdjClose float64
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
