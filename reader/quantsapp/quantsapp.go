// Package quantsapp scrapes the rendered Quantsapp option-chain table.
package quantsapp

import (
	"context"
	"time"

	"niftyflow/config"
	"niftyflow/logger"
	"niftyflow/models"
)

const SourceName = "quantsapp"

type Reader struct {
	cfg     config.QuantsappConfig
	browser Browser
	log     *logger.Log
}

func NewReader(cfg config.QuantsappConfig, browser Browser) *Reader {
	if browser == nil {
		browser = &ChromeBrowser{ExecPath: cfg.ExecPath, Headless: cfg.Headless}
	}
	return &Reader{cfg: cfg, browser: browser, log: logger.GetLogger()}
}

func (r *Reader) Name() string {
	return SourceName
}

// Fetch renders the option-chain page and returns its rows in page order.
func (r *Reader) Fetch(ctx context.Context) (models.Chain, error) {
	log := r.log.WithComponent("quantsapp_reader").WithFields(logger.Fields{"url": r.cfg.URL})
	start := time.Now()

	timeout := r.cfg.PageTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("navigating to option chain")
	html, err := r.browser.Render(ctx, r.cfg.URL, r.cfg.RowSelector, r.cfg.SettleDelay)
	if err != nil {
		return models.Chain{}, err
	}

	cells, err := ParseRows(html, r.cfg.RowSelector)
	if err != nil {
		return models.Chain{}, err
	}
	rows, skipped := BuildRows(cells, r.cfg.Cells)
	if len(cells) > 0 && len(rows) == 0 {
		log.WithFields(logger.Fields{"table_rows": len(cells)}).Warn("no table row had enough cells")
	}

	log.WithFields(logger.Fields{"table_rows": len(cells), "skipped": skipped}).Debug("table parsed")
	logger.LogPerformanceEntry(log, "quantsapp_reader", "fetch", time.Since(start), logger.Fields{"rows": len(rows)})
	logger.LogDataFlowEntry(log, r.cfg.URL, "delta_engine", len(rows), "strike_rows")

	return models.Chain{
		Source:    SourceName,
		Rows:      rows,
		FetchedAt: time.Now(),
	}, nil
}
