package api

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/jszwec/csvutil"
)

// encodeCSV renders rows with a header line, which is written even when rows
// is empty.
func encodeCSV[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	enc.Register(appendFloat)
	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendFloat keeps CSV numbers in plain decimal form, as JSON prints them.
func appendFloat(f float64) ([]byte, error) {
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// encodeTable renders a header and pre-formatted records. Used where the
// column set is chosen per request.
func encodeTable(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
