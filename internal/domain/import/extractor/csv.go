package extractor

import (
	"errors"

	"github.com/FACorreiaa/budget-tracker/internal/domain/import/sniffer"
)

// readCSV detects the delimiter (from the header line when there is one) and
// returns every record.
func readCSV(data []byte) ([][]string, error) {
	delimiter := ','
	cfg, err := sniffer.DetectConfig(data)
	switch {
	case err == nil:
		delimiter = cfg.Delimiter
	case errors.Is(err, sniffer.ErrNoHeadersFound):
		d, derr := sniffer.DetectDelimiter(data)
		if derr != nil {
			return nil, derr
		}
		delimiter = d
	default:
		return nil, err
	}
	return sniffer.ReadRecords(data, delimiter)
}
