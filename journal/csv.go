package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/candletrades/market"
)

// Header returns the output column labels for a base/quote pair.
func Header(base, quote string) []string {
	return []string{
		"Trading Pair",
		"Open Price",
		"Close Price",
		"High Price",
		"Low Price",
		strings.ToUpper(base) + " Volume",
		strings.ToUpper(quote) + " Volume",
		"No of Trades",
		"Candle Open Time",
		"Candle Close Time",
	}
}

// WriteCandlesCSV writes a header and one row per candle, in the given order.
func WriteCandlesCSV(w io.Writer, base, quote string, candles []market.Candle) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(base, quote)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	for _, c := range candles {
		count := ""
		if c.Counted {
			count = strconv.Itoa(c.TradeCount)
		}
		row := []string{
			c.Pair,
			c.Open.String(),
			c.Close.String(),
			c.High.String(),
			c.Low.String(),
			c.BaseVolume.String(),
			c.QuoteVolume.String(),
			count,
			strconv.FormatInt(c.OpenTime, 10),
			strconv.FormatInt(c.CloseTime, 10),
		}
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("write row: %w", err)
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	return written, nil
}

// WriteCandlesFile creates path and writes the candle CSV to it.
func WriteCandlesFile(path, base, quote string, candles []market.Candle) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return WriteCandlesCSV(f, base, quote, candles)
}

// ReadCandlesCSV parses a file produced by WriteCandlesCSV. Display timestamps
// are rebuilt in UTC; the local zone is not recorded in the file.
func ReadCandlesCSV(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header("", ""))

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []market.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		c, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseRow(rec []string) (market.Candle, error) {
	var (
		c    market.Candle
		err  error
		nums [6]decimal.Decimal
	)
	c.Pair = rec[0]
	for i := range nums {
		if nums[i], err = decimal.NewFromString(rec[i+1]); err != nil {
			return c, fmt.Errorf("column %d: %w", i+2, err)
		}
	}
	c.Open, c.Close, c.High, c.Low, c.BaseVolume, c.QuoteVolume = nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]

	if rec[7] != "" {
		if c.TradeCount, err = strconv.Atoi(rec[7]); err != nil {
			return c, fmt.Errorf("trade count: %w", err)
		}
		c.Counted = true
	}
	if c.OpenTime, err = strconv.ParseInt(rec[8], 10, 64); err != nil {
		return c, fmt.Errorf("open time: %w", err)
	}
	if c.CloseTime, err = strconv.ParseInt(rec[9], 10, 64); err != nil {
		return c, fmt.Errorf("close time: %w", err)
	}
	c.OpenUTC = market.MillisToTime(c.OpenTime)
	c.OpenLocal = c.OpenUTC
	return c, nil
}
