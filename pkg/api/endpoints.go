package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
	"github.com/hazyhaar/co2-ledger/pkg/export"
	"github.com/hazyhaar/co2-ledger/pkg/kit"
	"github.com/hazyhaar/co2-ledger/pkg/ledger"
	"github.com/hazyhaar/co2-ledger/pkg/source"
)

// Deps is what the endpoints read from. Sources may be nil.
type Deps struct {
	Registry  *dataset.Registry
	Sources   *source.SourceDB
	Leaks     ledger.LeakAllocator
	RankLimit int
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// badRequest marks errors caused by caller input.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func isBadRequest(err error) bool {
	var br *badRequest
	return errors.As(err, &br) || errors.Is(err, export.ErrInconsistentRow)
}

// Shared request/response types used by both HTTP and MCP transports.

type searchReq struct{ Query string }

type facilityReq struct{ Name string }

type rankingsReq struct{ Limit int }

type exportReq struct {
	View    string
	Columns []string
	Limit   int
}

type facilitiesResponse struct {
	Facilities []string `json:"facilities"`
	Count      int      `json:"count"`
}

type monthlyResponse struct {
	Months []ledger.MonthRow `json:"months"`
}

type rankingsResponse struct {
	Rankings []ledger.RankEntry `json:"rankings"`
}

type sourcesResponse struct {
	LoadedAt time.Time         `json:"loaded_at"`
	Outcomes []dataset.Outcome `json:"outcomes"`
	Sources  []source.Source   `json:"sources,omitempty"`
}

type reloadResponse struct {
	TotalRecords int               `json:"total_records"`
	LoadedAt     time.Time         `json:"loaded_at"`
	Failed       []dataset.Outcome `json:"failed"`
}

// ExportViews lists the views the export endpoint can render.
var ExportViews = []string{"monthly", "rankings", "facilities", "summary", "breakdown"}

func searchEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*searchReq)
		names := ledger.Search(d.Registry.Current(), req.Query)
		return facilitiesResponse{Facilities: names, Count: len(names)}, nil
	}
}

func facilityEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*facilityReq)
		if req.Name == "" {
			return nil, &badRequest{"missing facility name"}
		}
		return ledger.MergeFacility(d.Registry.Current(), req.Name), nil
	}
}

func monthlyEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return monthlyResponse{Months: d.monthly(d.Registry.Current())}, nil
	}
}

func summaryEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return ledger.Summarize(d.Registry.Current()), nil
	}
}

func rankingsEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*rankingsReq)
		return rankingsResponse{Rankings: ledger.Rank(d.Registry.Current(), d.rankLimit(req.Limit))}, nil
	}
}

func breakdownEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return ledger.SourceBreakdown(d.Registry.Current()), nil
	}
}

func sourcesEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		snap := d.Registry.Current()
		resp := sourcesResponse{LoadedAt: snap.LoadedAt, Outcomes: snap.Outcomes}
		if d.Sources != nil {
			srcs, err := d.Sources.ListSources()
			if err != nil {
				return nil, fmt.Errorf("list sources: %w", err)
			}
			resp.Sources = srcs
		}
		return resp, nil
	}
}

func reloadEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		snap := d.Registry.Reload(ctx)
		return reloadResponse{
			TotalRecords: snap.TotalRecords,
			LoadedAt:     snap.LoadedAt,
			Failed:       snap.Failed(),
		}, nil
	}
}

func exportEndpoint(d Deps) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*exportReq)
		return ExportView(d, d.Registry.Current(), req.View, req.Columns, req.Limit)
	}
}

// ExportView renders one view of snap as CSV. It backs the CLI export
// command and the export endpoint. A negative limit means the configured
// ranking limit.
func ExportView(d Deps, snap *dataset.Snapshot, view string, columns []string, limit int) (string, error) {
	rows, cols, err := d.exportRows(snap, view, limit)
	if err != nil {
		return "", err
	}
	if len(columns) > 0 {
		cols = columns
	}
	return export.CSV(rows, cols)
}

func (d Deps) exportRows(snap *dataset.Snapshot, view string, limit int) ([]export.Row, []string, error) {
	switch view {
	case "monthly":
		return export.Rows(d.monthly(snap))
	case "rankings":
		return export.Rows(ledger.Rank(snap, d.rankLimit(limit)))
	case "facilities":
		names := ledger.FacilityNames(snap)
		type facilityRow struct {
			Facility string `json:"facility"`
		}
		rows := make([]facilityRow, len(names))
		for i, n := range names {
			rows[i] = facilityRow{n}
		}
		return export.Rows(rows)
	case "summary":
		return export.Rows([]ledger.Summary{ledger.Summarize(snap)})
	case "breakdown":
		return export.Rows([]ledger.Breakdown{ledger.SourceBreakdown(snap)})
	default:
		return nil, nil, &badRequest{fmt.Sprintf("unknown export view %q (want one of %v)", view, ExportViews)}
	}
}

func (d Deps) monthly(snap *dataset.Snapshot) []ledger.MonthRow {
	return ledger.MonthlyAggregate(snap, ledger.WithLeakAllocator(d.Leaks))
}

// unsetLimit marks a request that did not name a ranking limit.
const unsetLimit = -1

func (d Deps) rankLimit(limit int) int {
	if limit >= 0 {
		return limit
	}
	if d.RankLimit > 0 {
		return d.RankLimit
	}
	return ledger.DefaultRankLimit
}
