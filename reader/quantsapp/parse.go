package quantsapp

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"niftyflow/config"
	"niftyflow/internal/numeric"
	"niftyflow/models"
)

// ParseRows returns the trimmed text of every td in each row matched by
// selector.
func ParseRows(html, selector string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var rows [][]string
	doc.Find(selector).Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

// BuildRows reads strike rows from cell text using the configured positions.
// Rows without enough cells are skipped; skipped reports how many.
func BuildRows(cells [][]string, idx config.CellIndexes) (rows []models.StrikeRow, skipped int) {
	need := idx.Max()
	for _, c := range cells {
		if len(c) <= need {
			skipped++
			continue
		}
		callOIRaw, putOIRaw := c[idx.CallOI], c[idx.PutOI]
		callLTPRaw, putLTPRaw := c[idx.CallLTP], c[idx.PutLTP]
		rows = append(rows, models.StrikeRow{
			Strike:     c[idx.Strike],
			CallOI:     numeric.ParseOI(callOIRaw),
			PutOI:      numeric.ParseOI(putOIRaw),
			CallLTP:    numeric.ParseLTP(callLTPRaw),
			PutLTP:     numeric.ParseLTP(putLTPRaw),
			CallOIRaw:  callOIRaw,
			PutOIRaw:   putOIRaw,
			CallLTPRaw: callLTPRaw,
			PutLTPRaw:  putLTPRaw,
		})
	}
	return rows, skipped
}
