package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/riahunter/firmsearch/internal/core/domain"
)

// enrich runs the batched secondary lookups for exactly the final result
// window. The two relations load concurrently, one IN(...) query each. A
// failed relation is omitted from the response, never fatal.
func (uc *SearchUseCase) enrich(ctx context.Context, groups []domain.DedupGroup) ([]domain.EnrichedFirm, error) {
	if len(groups) == 0 {
		return []domain.EnrichedFirm{}, nil
	}

	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.Representative.FirmID)
	}

	var (
		people map[int64][]domain.Person
		funds  map[int64][]domain.PrivateFund
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := uc.store.PeopleByFirmIDs(gctx, ids)
		if err != nil {
			slog.Warn("enrich_people_failed", "error", err)
			return nil
		}
		people = m
		return nil
	})
	g.Go(func() error {
		m, err := uc.store.FundsByFirmIDs(gctx, ids)
		if err != nil {
			slog.Warn("enrich_funds_failed", "error", err)
			return nil
		}
		funds = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.EnrichedFirm, 0, len(groups))
	for _, grp := range groups {
		firm := domain.EnrichedFirm{
			Candidate:   grp.Representative,
			BranchCount: grp.MemberCount,
		}
		if people != nil {
			firm.People = people[firm.FirmID]
		}
		if funds != nil {
			firm.Funds = funds[firm.FirmID]
		}
		out = append(out, firm)
	}
	return out, nil
}
