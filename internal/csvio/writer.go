package csvio

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
)

var balanceHeader = []string{"client", "available", "held", "total", "locked"}

// WriteBalances renders the balance table: the header line followed by one
// row per client. Rows are sorted by client id for stable output; amounts
// are printed with up to four fractional digits, trailing zeros trimmed.
func WriteBalances(output io.Writer, balances []engine.ClientBalance) error {
	sorted := make([]engine.ClientBalance, len(balances))
	copy(sorted, balances)
	sort.Slice(sorted, func(left, right int) bool {
		return sorted[left].ClientID < sorted[right].ClientID
	})

	csvWriter := csv.NewWriter(output)
	if err := csvWriter.Write(balanceHeader); err != nil {
		return err
	}
	for _, balance := range sorted {
		row := []string{
			strconv.FormatUint(uint64(balance.ClientID), 10),
			balance.Available.String(),
			balance.Held.String(),
			balance.Total.String(),
			strconv.FormatBool(balance.Locked),
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
