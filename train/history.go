package train

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteHistory logs per-epoch losses to a CSV file, one row per epoch.
func WriteHistory(path string, trainLosses, testLosses []float64) error {
	if len(trainLosses) != len(testLosses) {
		return fmt.Errorf("history length mismatch: %d train vs %d test",
			len(trainLosses), len(testLosses))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"epoch", "train_loss", "test_loss"}); err != nil {
		return err
	}
	for i := range trainLosses {
		rec := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(trainLosses[i], 'f', 6, 64),
			strconv.FormatFloat(testLosses[i], 'f', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
