package quantsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"niftyflow/config"
)

const tablePage = `<html><body><table><tbody>
<tr><td>a</td><td>b</td><td>c</td><td> 1.2L </td><td>x</td><td>101.50</td><td>22000</td><td>12.00</td><td>y</td><td>80K</td></tr>
<tr><td>short</td><td>row</td></tr>
<tr><td>a</td><td>b</td><td>c</td><td>50,000</td><td>x</td><td>-</td><td>22050</td><td>9.1</td><td>y</td><td>--</td></tr>
</tbody></table></body></html>`

type fakeBrowser struct {
	html     string
	err      error
	url      string
	selector string
	deadline bool
}

func (f *fakeBrowser) Render(ctx context.Context, url, selector string, settle time.Duration) (string, error) {
	f.url, f.selector = url, selector
	_, f.deadline = ctx.Deadline()
	return f.html, f.err
}

func testConfig() config.QuantsappConfig {
	return config.Default().Source.Quantsapp
}

func TestParseRows(t *testing.T) {
	rows, err := ParseRows(tablePage, "table tbody tr")
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][3] != "1.2L" || rows[0][6] != "22000" {
		t.Errorf("cells not trimmed or misplaced: %q", rows[0])
	}
	if len(rows[1]) != 2 {
		t.Errorf("short row has %d cells", len(rows[1]))
	}
}

func TestBuildRows(t *testing.T) {
	cells, _ := ParseRows(tablePage, "table tbody tr")
	rows, skipped := BuildRows(cells, testConfig().Cells)
	if skipped != 1 || len(rows) != 2 {
		t.Fatalf("rows=%d skipped=%d", len(rows), skipped)
	}

	first := rows[0]
	if first.Strike != "22000" || first.CallOI != 120000 || first.PutOI != 80000 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.CallLTP.String() != "101.5" || first.PutLTP.String() != "12" {
		t.Errorf("unexpected prices: %s %s", first.CallLTP, first.PutLTP)
	}
	if first.CallOIRaw != "1.2L" || first.PutOIRaw != "80K" {
		t.Errorf("raw text not kept: %+v", first)
	}

	second := rows[1]
	if second.CallOI != 50000 || second.PutOI != 0 || !second.CallLTP.IsZero() {
		t.Errorf("unexpected second row: %+v", second)
	}
}

func TestBuildRowsCustomIndexes(t *testing.T) {
	cells := [][]string{{"22100", "5K", "1.5", "2.5", "6K"}}
	idx := config.CellIndexes{Strike: 0, CallOI: 1, CallLTP: 2, PutLTP: 3, PutOI: 4}
	rows, skipped := BuildRows(cells, idx)
	if skipped != 0 || len(rows) != 1 || rows[0].CallOI != 5000 || rows[0].PutOI != 6000 {
		t.Fatalf("unexpected rows %+v skipped=%d", rows, skipped)
	}
}

func TestReaderFetch(t *testing.T) {
	browser := &fakeBrowser{html: tablePage}
	r := NewReader(testConfig(), browser)

	chain, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if chain.Source != SourceName || len(chain.Rows) != 2 || chain.FetchedAt.IsZero() {
		t.Fatalf("unexpected chain: %+v", chain)
	}
	if browser.url != testConfig().URL || browser.selector != "table tbody tr" {
		t.Errorf("browser called with %q %q", browser.url, browser.selector)
	}
	if !browser.deadline {
		t.Errorf("page render should run under a timeout")
	}
}

func TestReaderFetchError(t *testing.T) {
	r := NewReader(testConfig(), &fakeBrowser{err: errors.New("net::ERR_TIMED_OUT")})
	if _, err := r.Fetch(context.Background()); err == nil {
		t.Fatalf("expected render error")
	}
}

func TestChromeAllocatorOptions(t *testing.T) {
	b := &ChromeBrowser{ExecPath: "/usr/bin/chromium", Headless: true}
	withPath := len(b.allocatorOptions())
	b.ExecPath = ""
	if withPath != len(b.allocatorOptions())+1 {
		t.Errorf("exec path option not appended")
	}
}
