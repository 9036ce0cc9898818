package processor

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"niftyflow/models"
)

// SortByStrike orders rows ascending by numeric strike. When any strike is
// not a number the slice is left untouched and false is returned.
func SortByStrike(rows []models.AnnotatedRow) bool {
	keys := make([]float64, len(rows))
	for i, r := range rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Strike), 64)
		if err != nil || math.IsNaN(v) {
			return false
		}
		keys[i] = v
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	sorted := make([]models.AnnotatedRow, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
	return true
}
