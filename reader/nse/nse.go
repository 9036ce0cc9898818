// Package nse reads the NIFTY option chain from the NSE JSON API.
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"niftyflow/config"
	"niftyflow/logger"
	"niftyflow/models"
)

const (
	SourceName = "nse"

	warmupPath = "/option-chain"
	chainPath  = "/api/option-chain-indices"
)

type Reader struct {
	cfg    config.NSEConfig
	client *resty.Client
	log    *logger.Log
}

func NewReader(cfg config.NSEConfig) *Reader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetTransport(browserHeadersTransport{agent: cfg.UserAgent})

	return &Reader{cfg: cfg, client: client, log: logger.GetLogger()}
}

func (r *Reader) Name() string {
	return SourceName
}

// Fetch loads the option-chain page for its cookies, then the JSON chain.
// Only strikes of the nearest expiry are returned when expiry dates are
// present.
func (r *Reader) Fetch(ctx context.Context) (models.Chain, error) {
	log := r.log.WithComponent("nse_reader").WithFields(logger.Fields{"symbol": r.cfg.Symbol})
	start := time.Now()

	warm, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(warmupPath)
	if err != nil {
		log.WithError(err).Warn("cookie warm-up failed")
	} else if warm.IsError() {
		log.WithFields(logger.Fields{"status": warm.StatusCode()}).Warn("cookie warm-up returned error status")
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Referer", r.cfg.BaseURL+warmupPath).
		SetQueryParam("symbol", r.cfg.Symbol).
		Get(chainPath)
	if err != nil {
		return models.Chain{}, fmt.Errorf("option chain request: %w", err)
	}
	if resp.IsError() {
		return models.Chain{}, fmt.Errorf("option chain request: status %d", resp.StatusCode())
	}

	var payload models.NSEOptionChainResp
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.Chain{}, fmt.Errorf("decode option chain: %w", err)
	}

	chain := BuildChain(payload)
	chain.FetchedAt = time.Now()

	logger.LogPerformanceEntry(log, "nse_reader", "fetch", time.Since(start), logger.Fields{"rows": len(chain.Rows), "expiry": chain.Expiry})
	logger.LogDataFlowEntry(log, r.cfg.BaseURL+chainPath, "delta_engine", len(chain.Rows), "strike_rows")
	return chain, nil
}

// BuildChain converts the API payload into strike rows. A missing call or
// put leg reads as zero.
func BuildChain(payload models.NSEOptionChainResp) models.Chain {
	rec := payload.Records
	expiry := ""
	if len(rec.ExpiryDates) > 0 {
		expiry = rec.ExpiryDates[0]
	}

	rows := make([]models.StrikeRow, 0, len(rec.Data))
	for _, d := range rec.Data {
		if expiry != "" && d.ExpiryDate != "" && d.ExpiryDate != expiry {
			continue
		}
		row := models.StrikeRow{Strike: d.StrikePrice.String()}
		if d.CE != nil {
			row.CallOI = d.CE.OpenInterest.IntPart()
			row.CallLTP = d.CE.LastPrice
		}
		if d.PE != nil {
			row.PutOI = d.PE.OpenInterest.IntPart()
			row.PutLTP = d.PE.LastPrice
		}
		rows = append(rows, row)
	}

	return models.Chain{
		Source:     SourceName,
		Rows:       rows,
		Underlying: rec.UnderlyingValue,
		Expiry:     expiry,
	}
}
