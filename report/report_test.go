package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"niftyflow/internal/numeric"
	"niftyflow/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func annotated(strike string, ce, pe int64, ceLTP, peLTP string) models.AnnotatedRow {
	r := models.AnnotatedRow{StrikeRow: models.StrikeRow{
		Strike: strike, CallOI: ce, PutOI: pe, CallLTP: dec(ceLTP), PutLTP: dec(peLTP),
	}}
	r.CallOIDelta, r.PutOIDelta = ce, pe
	r.CallOIDeltaText, r.PutOIDeltaText = numeric.SignedOIDelta(ce), numeric.SignedOIDelta(pe)
	r.CallLTPDeltaText, r.PutLTPDeltaText = numeric.SignedLTPDelta(dec(ceLTP)), numeric.SignedLTPDelta(dec(peLTP))
	return r
}

// 2024-11-26 04:45 UTC is 10:15 IST on a Tuesday.
var fixedNow = time.Date(2024, 11, 26, 4, 45, 0, 0, time.UTC)

func TestSplitFormat(t *testing.T) {
	r := annotated("22000", 120000, 80000, "101.5", "12")
	r.CallOIRaw = "1.2L"
	msgs := Split([]models.AnnotatedRow{r}, Options{Now: fixedNow, SourceLabel: "web.quantsapp.com"})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	wantCE := "📈 *NIFTY CE (Call)*\n🕒 2024-11-26 10:15 IST\n\n" +
		"```\nStrike | OI       | ΔOI     | LTP (Δ)\n" +
		"-------------------------------------\n" +
		"22000  | 1.2L     | +1.20L  | 101.50 (+101.50)\n" +
		"```\nSource: web.quantsapp.com"
	if msgs[0].Text != wantCE {
		t.Errorf("CE message:\n%s\nwant:\n%s", msgs[0].Text, wantCE)
	}
	if msgs[0].Mode != models.ParseMarkdown || msgs[1].Mode != models.ParseMarkdown {
		t.Errorf("split messages must be Markdown")
	}

	if !strings.HasPrefix(msgs[1].Text, "📉 *NIFTY PE (Put)*") {
		t.Errorf("PE header missing: %q", msgs[1].Text)
	}
	if !strings.Contains(msgs[1].Text, "22000  | 80.00K   | +80.00K |  12.00 (+12.00)\n") {
		t.Errorf("PE row not rendered from magnitude: %q", msgs[1].Text)
	}
}

func TestSplitTopN(t *testing.T) {
	var rows []models.AnnotatedRow
	for i := 0; i < 20; i++ {
		rows = append(rows, annotated(decimal.NewFromInt(int64(21000+50*i)).String(), 1, 1, "1", "1"))
	}
	msgs := Split(rows, Options{Now: fixedNow})
	if n := strings.Count(msgs[0].Text, "\n21"); n != DefaultTopN {
		t.Errorf("rendered %d rows, want %d", n, DefaultTopN)
	}
	msgs = Split(rows, Options{Now: fixedNow, TopN: 3})
	if !strings.Contains(msgs[0].Text, "21100 ") || strings.Contains(msgs[0].Text, "21150") {
		t.Errorf("top 3 window wrong: %q", msgs[0].Text)
	}
}

func TestCombinedFormat(t *testing.T) {
	rows := []models.AnnotatedRow{
		annotated("24050", 1000, 3000, "90", "10"),
		annotated("24100", 2000, 2000, "60", "30"),
		annotated("24150", 4000, 1000, "35", "55"),
	}
	msg := Combined(rows, dec("24110.35"), "28-Nov-2024", Options{Now: fixedNow, SourceLabel: "NSE"})
	if msg.Mode != models.ParseHTML {
		t.Fatalf("combined message must be HTML")
	}
	for _, want := range []string{
		"📊 <b>NIFTY Option Chain</b>",
		"🕒 2024-11-26 10:15 IST",
		"Spot: <b>24110.35</b> | Expiry: <b>28-Nov-2024</b>",
		"<pre>   CE OI |",
		"| 24100*   |",
		"Total CE OI: <b>7.00K</b> | Total PE OI: <b>6.00K</b> | PCR: <b>0.86</b>",
		"Source: NSE",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("missing %q in:\n%s", want, msg.Text)
		}
	}
	if strings.Count(msg.Text, atmMarker+" ") != 2 {
		t.Errorf("expected exactly one marked strike plus legend:\n%s", msg.Text)
	}
}

func TestCombinedEscapesHTML(t *testing.T) {
	r := annotated("<1>", 1, 1, "1", "1")
	msg := Combined([]models.AnnotatedRow{r}, decimal.Zero, "", Options{Now: fixedNow})
	if strings.Contains(msg.Text, "<1>") || !strings.Contains(msg.Text, "&lt;1&gt;") {
		t.Errorf("strike not escaped: %s", msg.Text)
	}
	if strings.Contains(msg.Text, "Spot:") {
		t.Errorf("spot shown without underlying")
	}
}

func TestPCR(t *testing.T) {
	if got := PCR(decimal.Zero, dec("5")); got != "-" {
		t.Errorf("PCR with no calls = %q", got)
	}
	if got := PCR(dec("200"), dec("150")); got != "0.75" {
		t.Errorf("PCR = %q", got)
	}
}

func TestATMIndexAndWindow(t *testing.T) {
	var rows []models.AnnotatedRow
	for i := 0; i < 11; i++ {
		rows = append(rows, annotated(decimal.NewFromInt(int64(24000+50*i)).String(), 0, 0, "0", "0"))
	}
	if got := ATMIndex(rows, dec("24262")); got != 5 {
		t.Fatalf("ATMIndex = %d, want 5", got)
	}
	if got := ATMIndex(rows, decimal.Zero); got != -1 {
		t.Fatalf("ATMIndex without underlying = %d", got)
	}

	w := WindowAroundATM(rows, dec("24262"), 5)
	if len(w) != 5 || w[0].Strike != "24150" || w[4].Strike != "24350" {
		t.Errorf("window = %v", strikeList(w))
	}
	w = WindowAroundATM(rows, dec("24000"), 5)
	if w[0].Strike != "24000" {
		t.Errorf("window at low edge = %v", strikeList(w))
	}
	w = WindowAroundATM(rows, dec("99999"), 5)
	if w[4].Strike != "24500" {
		t.Errorf("window at high edge = %v", strikeList(w))
	}
}

func TestISTFallbackOffset(t *testing.T) {
	_, off := fixedNow.In(istFallback).Zone()
	if off != 19800 {
		t.Errorf("fallback offset = %d", off)
	}
}

func strikeList(rows []models.AnnotatedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Strike
	}
	return out
}
