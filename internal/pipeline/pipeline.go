// Package pipeline runs one option-chain cycle: gate, fetch, delta, cache,
// render and deliver.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"niftyflow/internal/metrics"
	"niftyflow/internal/snapshot"
	"niftyflow/logger"
	"niftyflow/models"
	"niftyflow/processor"
	"niftyflow/report"
)

// DefaultMessageInterval spaces consecutive Telegram messages.
const DefaultMessageInterval = 500 * time.Millisecond

// Source fetches the current option chain.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (models.Chain, error)
}

// Sink delivers one rendered message.
type Sink interface {
	Write(ctx context.Context, msg models.Message) error
}

// Renderer turns annotated, sorted rows into the messages of one report.
type Renderer func(chain models.Chain, rows []models.AnnotatedRow, opts report.Options) []models.Message

// SplitRenderer produces separate call and put tables.
func SplitRenderer(_ models.Chain, rows []models.AnnotatedRow, opts report.Options) []models.Message {
	return report.Split(rows, opts)
}

// CombinedRenderer produces one side-by-side table centred on the ATM strike.
func CombinedRenderer(chain models.Chain, rows []models.AnnotatedRow, opts report.Options) []models.Message {
	window := report.WindowAroundATM(rows, chain.Underlying, opts.TopN)
	return []models.Message{report.Combined(window, chain.Underlying, chain.Expiry, opts)}
}

type Status string

const (
	StatusDone        Status = "done"
	StatusSkipped     Status = "skipped"
	StatusNoData      Status = "no_data"
	StatusFetchFailed Status = "fetch_failed"
)

// Result summarises one run.
type Result struct {
	RunID          string
	Status         Status
	RowsFetched    int
	RowsDropped    int
	MessagesSent   int
	MessagesFailed int
	CacheSaved     bool
	Err            error
}

// Options wires the collaborators of a Pipeline.
type Options struct {
	Source          Source
	Cache           *snapshot.Cache
	Sink            Sink
	Render          Renderer
	Gate            Gate
	Report          report.Options
	MessageInterval time.Duration
	Now             func() time.Time
	Log             *logger.Log
}

// Pipeline executes runs against one source. It is not safe for overlapping
// runs; callers serialise them.
type Pipeline struct {
	source   Source
	cache    *snapshot.Cache
	sink     Sink
	render   Renderer
	gate     Gate
	report   report.Options
	interval time.Duration
	engine   *processor.DeltaEngine
	now      func() time.Time
	log      *logger.Log
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		source:   opts.Source,
		cache:    opts.Cache,
		sink:     opts.Sink,
		render:   opts.Render,
		gate:     opts.Gate,
		report:   opts.Report,
		interval: opts.MessageInterval,
		engine:   processor.NewDeltaEngine(),
		now:      opts.Now,
		log:      opts.Log,
	}
	if p.render == nil {
		p.render = SplitRenderer
	}
	if p.interval <= 0 {
		p.interval = DefaultMessageInterval
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.log == nil {
		p.log = logger.GetLogger()
	}
	return p
}

// Cache exposes the snapshot cache, for example to serve it over HTTP.
func (p *Pipeline) Cache() *snapshot.Cache {
	return p.cache
}

// Run executes one cycle. Fetch failures abort before anything is saved or
// delivered; cache and delivery failures are logged and the run continues.
func (p *Pipeline) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{
		"run_id": res.RunID,
		"source": p.source.Name(),
	})

	defer func() {
		event := metrics.RunEvent{
			RunID:          res.RunID,
			Source:         p.source.Name(),
			Status:         string(res.Status),
			RowsFetched:    res.RowsFetched,
			RowsDropped:    res.RowsDropped,
			MessagesSent:   res.MessagesSent,
			MessagesFailed: res.MessagesFailed,
			Duration:       time.Since(start),
		}
		if res.Err != nil {
			event.Error = res.Err.Error()
		}
		metrics.EmitRun(p.log, event)
	}()

	now := p.now()
	if !p.gate.Open(now) {
		log.Info("outside market hours, skipping run")
		res.Status = StatusSkipped
		return res
	}

	chain, err := p.source.Fetch(ctx)
	if err != nil {
		log.WithError(err).Error("fetch failed, nothing delivered")
		res.Status = StatusFetchFailed
		res.Err = err
		return res
	}
	res.RowsFetched = len(chain.Rows)
	if len(chain.Rows) == 0 {
		log.Warn("source returned no rows, aborting run")
		res.Status = StatusNoData
		return res
	}
	logger.LogDataFlowEntry(log, p.source.Name(), "delta_engine", len(chain.Rows), "strike_rows")

	prev := p.cache.Load(ctx)
	rows := p.engine.Compute(chain.Rows, prev)
	res.RowsDropped = len(chain.Rows) - len(rows)
	metrics.RecordRows(p.source.Name(), res.RowsFetched, res.RowsDropped)
	if len(rows) == 0 {
		log.Warn("no valid rows after delta computation, aborting run")
		res.Status = StatusNoData
		return res
	}

	if !processor.SortByStrike(rows) {
		log.Warn("non-numeric strike found, keeping source order")
	}

	res.CacheSaved = p.cache.Save(ctx, rows)
	metrics.RecordCacheWrite(res.CacheSaved)

	opts := p.report
	if opts.Now.IsZero() {
		opts.Now = now
	}
	messages := p.render(chain, rows, opts)
	p.deliver(ctx, log, messages, &res)

	res.Status = StatusDone
	return res
}

func (p *Pipeline) deliver(ctx context.Context, log *logger.Entry, messages []models.Message, res *Result) {
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	for i, msg := range messages {
		if err := limiter.Wait(ctx); err != nil {
			res.MessagesFailed += len(messages) - i
			log.WithError(err).Warn("delivery interrupted")
			return
		}
		if err := p.sink.Write(ctx, msg); err != nil {
			res.MessagesFailed++
			metrics.RecordDelivery(false)
			log.WithError(err).WithFields(logger.Fields{"message": i + 1, "of": len(messages)}).Error("delivery failed")
			continue
		}
		res.MessagesSent++
		metrics.RecordDelivery(true)
	}
}
