// Package source fetches the ten datasets and tracks where they come from.
package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
	"github.com/hazyhaar/co2-ledger/pkg/metrics"
)

// Overrides returns a replacement location for a dataset, or "" to use the
// dataset's default file.
type Overrides func(name dataset.Name) string

// Loader implements dataset.Loader on top of a Fetcher.
type Loader struct {
	fetcher   Fetcher
	logger    *slog.Logger
	overrides Overrides
}

// NewLoader creates a loader. overrides may be nil.
func NewLoader(fetcher Fetcher, logger *slog.Logger, overrides Overrides) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, logger: logger, overrides: overrides}
}

// Load fetches and parses one dataset. It never fails: on any error the
// outcome says why and the record list is empty.
func (l *Loader) Load(ctx context.Context, name dataset.Name) dataset.Result {
	start := time.Now()
	res := l.load(ctx, name)
	res.Outcome.Dataset = name
	res.Outcome.Records = len(res.Records)
	res.Outcome.Duration = time.Since(start)

	metrics.RecordDatasetLoad(string(name), string(res.Outcome.Status), res.Outcome.Duration)

	if res.Outcome.OK() {
		l.logger.Info("dataset loaded", "dataset", name, "records", res.Outcome.Records, "duration", res.Outcome.Duration)
	} else {
		l.logger.Warn("dataset unavailable, using empty collection",
			"dataset", name,
			"status", res.Outcome.Status,
			"error", res.Outcome.Error,
		)
	}
	return res
}

func (l *Loader) load(ctx context.Context, name dataset.Name) dataset.Result {
	spec, err := dataset.Lookup(name)
	if err != nil {
		return failed(dataset.StatusFailed, err)
	}

	file := spec.File
	if l.overrides != nil {
		if o := l.overrides(name); o != "" {
			file = o
		}
	}

	data, err := l.fetcher.Fetch(ctx, file)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return failed(dataset.StatusNotFound, err)
		}
		return failed(dataset.StatusFailed, err)
	}

	raws, err := dataset.DecodeRaw(data)
	if err != nil {
		return failed(dataset.StatusMalformed, err)
	}
	return dataset.Result{
		Outcome: dataset.Outcome{Status: dataset.StatusOK},
		Records: raws,
	}
}

func failed(status dataset.Status, err error) dataset.Result {
	return dataset.Result{
		Outcome: dataset.Outcome{Status: status, Error: err.Error()},
		Records: []dataset.Raw{},
	}
}
