// Package propdata composes the gate, the upstream client, and the
// normalizer behind the operations the CLI and HTTP front-end consume.
package propdata

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/model"
	"github.com/sells-group/propdata-cli/internal/normalize"
	"github.com/sells-group/propdata-cli/pkg/propstream"
)

// minQueryLen is the shortest search query worth a network call.
const minQueryLen = 3

// Service is the high-level property data API.
type Service struct {
	client propstream.Client
	gate   *gate.Gate
}

// New creates a Service. The gate must be the same instance the client
// was built with, so UsageStats reflects the client's traffic.
func New(client propstream.Client, g *gate.Gate) *Service {
	return &Service{client: client, gate: g}
}

// Lookup resolves a free-form address to a normalized property record.
// It asks the autocomplete endpoint for suggestions, takes the top
// match, and fetches full details for its property ID. A nil record
// with a nil error means not found: zero matches is a normal outcome,
// not an error.
func (s *Service) Lookup(ctx context.Context, address string) (*model.PropertyRecord, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	raw, err := s.client.Suggestions(ctx, address)
	if err != nil {
		return nil, err
	}

	suggestions := normalize.ParseSuggestions(raw)
	if len(suggestions) == 0 {
		zap.L().Debug("lookup: no suggestions", zap.String("address", address))
		return nil, nil
	}

	top := suggestions[0]
	if top.ID == "" {
		zap.L().Debug("lookup: top suggestion has no property id",
			zap.String("address", address),
			zap.String("label", top.Label),
		)
		return nil, nil
	}

	detail, err := s.client.PropertyByID(ctx, top.ID, propstream.PropertyQuery{})
	if err != nil {
		return nil, err
	}

	records := normalize.ParseMany(detail)
	if len(records) == 0 {
		zap.L().Debug("lookup: detail payload held no property",
			zap.String("property_id", top.ID),
		)
		return nil, nil
	}

	return &records[0], nil
}

// Search returns address suggestions for a partial address. Queries
// shorter than three characters return empty without a network call.
func (s *Service) Search(ctx context.Context, query string) ([]model.AddressSuggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen {
		return []model.AddressSuggestion{}, nil
	}

	raw, err := s.client.Suggestions(ctx, query)
	if err != nil {
		return nil, err
	}

	suggestions := normalize.ParseSuggestions(raw)
	if suggestions == nil {
		suggestions = []model.AddressSuggestion{}
	}
	return suggestions, nil
}

// SearchProperties runs a criteria search and normalizes the results.
func (s *Service) SearchProperties(ctx context.Context, c propstream.SearchCriteria) ([]model.PropertyRecord, error) {
	raw, err := s.client.SearchProperties(ctx, c)
	if err != nil {
		return nil, err
	}
	return normalize.ParseMany(raw), nil
}

// UsageStats snapshots current request accounting. It never touches the
// network and never mutates gate state.
func (s *Service) UsageStats() model.UsageStats {
	snap := s.gate.Snapshot()
	return model.UsageStats{
		SessionRequests:        snap.SessionRequests,
		SessionDurationMinutes: int(snap.SessionDuration.Minutes()),
		HourlyLimit:            snap.HourlyLimit,
		HourlyRemaining:        snap.HourlyRemaining,
		DailyRequests:          snap.DailyRequests,
		DailyLimit:             snap.DailyLimit,
		DailyRemaining:         snap.DailyRemaining,
	}
}

// TestConnection reports whether the upstream accepts our credentials.
func (s *Service) TestConnection(ctx context.Context) bool {
	return s.client.TestConnection(ctx)
}
