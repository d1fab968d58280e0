package ports

import (
	"context"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// FirmSearcher is the inbound contract consumed by the transport layer.
type FirmSearcher interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.ResultSet, error)
}
