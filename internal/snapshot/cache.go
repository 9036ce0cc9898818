package snapshot

import (
	"context"
	"errors"
	"time"

	"niftyflow/logger"
	"niftyflow/models"
)

// Cache loads and saves the previous snapshot through a Store. Failures are
// logged and never returned so a run can continue without history.
type Cache struct {
	store Store
	log   *logger.Log
}

func NewCache(store Store) *Cache {
	return &Cache{store: store, log: logger.GetLogger()}
}

func (c *Cache) Store() Store {
	return c.store
}

// Load returns the stored snapshot, or an empty one when nothing is stored or
// the document is unreadable. When any entry had to be normalized the
// canonical form is written back once.
func (c *Cache) Load(ctx context.Context) Snapshot {
	log := c.log.WithComponent("snapshot_cache").WithFields(logger.Fields{"location": c.store.Location()})
	start := time.Now()

	data, err := c.store.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		log.Info("no previous snapshot")
		return Snapshot{}
	}
	if err != nil {
		log.WithError(err).Warn("failed reading snapshot")
		return Snapshot{}
	}

	snap, migrated, err := Decode(data)
	if err != nil {
		log.WithError(err).Warn("snapshot is corrupt, starting empty")
		return Snapshot{}
	}

	if migrated {
		if err := c.write(ctx, snap); err != nil {
			log.WithError(err).Warn("failed writing migrated snapshot")
		} else {
			log.WithFields(logger.Fields{"strikes": len(snap)}).Info("migrated snapshot to current schema")
		}
	}

	logger.LogPerformanceEntry(log, "snapshot_cache", "load", time.Since(start), logger.Fields{"strikes": len(snap)})
	return snap
}

// Save replaces the stored snapshot with the current values of rows. Later
// rows win when a strike repeats.
func (c *Cache) Save(ctx context.Context, rows []models.AnnotatedRow) bool {
	log := c.log.WithComponent("snapshot_cache").WithFields(logger.Fields{"location": c.store.Location()})

	snap := FromRows(rows)
	if err := c.write(ctx, snap); err != nil {
		log.WithError(err).Warn("failed saving snapshot")
		return false
	}
	logger.LogDataFlowEntry(log, "delta_engine", c.store.Location(), len(snap), "snapshot")
	return true
}

// Raw returns the stored document as is.
func (c *Cache) Raw(ctx context.Context) ([]byte, error) {
	return c.store.Read(ctx)
}

func (c *Cache) write(ctx context.Context, snap Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	return c.store.Write(ctx, data)
}

// FromRows builds a snapshot holding the current values of rows.
func FromRows(rows []models.AnnotatedRow) Snapshot {
	snap := make(Snapshot, len(rows))
	for _, r := range rows {
		snap[r.Strike] = Entry{
			CallOI:  r.CallOI,
			PutOI:   r.PutOI,
			CallLTP: r.CallLTP,
			PutLTP:  r.PutLTP,
		}
	}
	return snap
}
