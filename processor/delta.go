package processor

import (
	"errors"
	"fmt"
	"strings"

	"niftyflow/internal/numeric"
	"niftyflow/internal/snapshot"
	"niftyflow/logger"
	"niftyflow/models"
)

var (
	ErrEmptyStrike = errors.New("empty strike identifier")
	ErrOverflow    = errors.New("open interest delta overflows int64")
)

// DeltaEngine annotates fetched rows with their change against the previous
// snapshot.
type DeltaEngine struct {
	log *logger.Log
}

func NewDeltaEngine() *DeltaEngine {
	return &DeltaEngine{log: logger.GetLogger()}
}

// ComputeDeltas is DeltaEngine.Compute with the global logger.
func ComputeDeltas(rows []models.StrikeRow, prev snapshot.Snapshot) []models.AnnotatedRow {
	return NewDeltaEngine().Compute(rows, prev)
}

// Compute returns one annotated row per valid input row, in input order.
// A strike absent from prev is compared against zero. Rows that cannot be
// annotated are dropped and logged.
func (e *DeltaEngine) Compute(rows []models.StrikeRow, prev snapshot.Snapshot) []models.AnnotatedRow {
	log := e.log.WithComponent("delta_engine")

	out := make([]models.AnnotatedRow, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		annotated, err := Annotate(row, prev[row.Strike])
		if err != nil {
			dropped++
			log.WithError(err).WithFields(logger.Fields{"strike": row.Strike}).Debug("dropping row")
			continue
		}
		out = append(out, annotated)
	}

	if dropped > 0 {
		log.WithFields(logger.Fields{"dropped": dropped, "kept": len(out)}).Warn("rows dropped during delta computation")
	}
	return out
}

// Annotate computes the deltas of a single row against its previous entry.
// Negative values are kept as parsed.
func Annotate(row models.StrikeRow, prev snapshot.Entry) (models.AnnotatedRow, error) {
	if strings.TrimSpace(row.Strike) == "" {
		return models.AnnotatedRow{}, ErrEmptyStrike
	}

	callOIDelta, err := subtract(row.CallOI, prev.CallOI)
	if err != nil {
		return models.AnnotatedRow{}, fmt.Errorf("call: %w", err)
	}
	putOIDelta, err := subtract(row.PutOI, prev.PutOI)
	if err != nil {
		return models.AnnotatedRow{}, fmt.Errorf("put: %w", err)
	}
	callLTPDelta := row.CallLTP.Sub(prev.CallLTP)
	putLTPDelta := row.PutLTP.Sub(prev.PutLTP)

	return models.AnnotatedRow{
		StrikeRow: row,
		DeltaAnnotation: models.DeltaAnnotation{
			CallOIDelta:      callOIDelta,
			PutOIDelta:       putOIDelta,
			CallLTPDelta:     callLTPDelta,
			PutLTPDelta:      putLTPDelta,
			CallOIDeltaText:  numeric.SignedOIDelta(callOIDelta),
			PutOIDeltaText:   numeric.SignedOIDelta(putOIDelta),
			CallLTPDeltaText: numeric.SignedLTPDelta(callLTPDelta),
			PutLTPDeltaText:  numeric.SignedLTPDelta(putLTPDelta),
		},
	}, nil
}

func subtract(cur, prev int64) (int64, error) {
	d := cur - prev
	if (prev > 0 && d > cur) || (prev < 0 && d < cur) {
		return 0, ErrOverflow
	}
	return d, nil
}
