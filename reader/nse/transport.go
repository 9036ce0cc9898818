package nse

import "net/http"

// browserHeadersTransport makes API calls look like they come from the
// option-chain page in a browser.
type browserHeadersTransport struct {
	agent string
	base  http.RoundTripper
}

func (t browserHeadersTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
