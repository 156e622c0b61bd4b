package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrNoIdentity is returned when the dashboard is opened without a signed-in
// user.
var ErrNoIdentity = errors.New("no user identity; sign in to view feedback")

// AggregationFetcher returns the raw aggregation payload for an identity.
type AggregationFetcher interface {
	FetchAggregation(ctx context.Context, identity string) (json.RawMessage, error)
}

// Loader fetches and normalizes the dashboard for one identity.
type Loader struct {
	fetcher AggregationFetcher
	logger  *zap.Logger
}

func NewLoader(fetcher AggregationFetcher, logger *zap.Logger) *Loader {
	if fetcher == nil {
		panic("nil AggregationFetcher provided to NewLoader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, logger: logger.Named("dashboard")}
}

// Load returns the dashboard for identity. Transport and protocol failures
// are returned as errors; a response with no feedback is a successful empty
// result.
func (l *Loader) Load(ctx context.Context, identity string) (AggregationResult, error) {
	if strings.TrimSpace(identity) == "" {
		return AggregationResult{}, ErrNoIdentity
	}

	raw, err := l.fetcher.FetchAggregation(ctx, identity)
	if err != nil {
		l.logger.Error("failed to fetch aggregation", zap.Error(err))
		return AggregationResult{}, err
	}

	res, err := Normalize(raw, identity)
	if err != nil {
		l.logger.Error("failed to normalize aggregation", zap.Error(err))
		return AggregationResult{}, err
	}

	l.logger.Debug("aggregation loaded",
		zap.String("booth_id", res.BoothID),
		zap.Int("total_count", res.TotalCount),
	)
	return res, nil
}
