package api

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/co2-ledger/pkg/kit"
	"github.com/hazyhaar/co2-ledger/pkg/metrics"
)

// wrap applies the middleware every endpoint gets on both transports.
func wrap(log *slog.Logger, name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(log, name), countCalls(name))(ep)
}

// countCalls counts calls of the wrapped endpoint by transport and outcome.
func countCalls(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req)
			outcome := "ok"
			switch {
			case err == nil:
			case isBadRequest(err):
				outcome = "bad_request"
			default:
				outcome = "error"
			}
			metrics.RecordEndpointCall(name, kit.GetTransport(ctx), outcome)
			return resp, err
		}
	}
}
