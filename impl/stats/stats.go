package stats

import (
	"fmt"
	"log/slog"
	"sort"

	"groupwarden/entity"
	"groupwarden/lib/sl"
)

// Store is the slice of the database layer this service needs.
type Store interface {
	UserInvitationTotals() ([]entity.UserTotals, error)
}

// Service builds invitation leaderboards from the aggregate ledger
// totals.
type Service struct {
	store Store
	limit int
	log   *slog.Logger
}

func New(store Store, limit int, log *slog.Logger) *Service {
	if limit < 1 {
		limit = 20
	}
	return &Service{
		store: store,
		limit: limit,
		log:   log.With(sl.Module("impl.stats")),
	}
}

// Ranking returns the top entries of the requested leaderboard, capped
// at the configured limit. Users with a zero count are omitted.
func (s *Service) Ranking(kind entity.RankingKind) ([]entity.RankEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown ranking kind: %s", kind)
	}
	ranked, err := s.rankedTotals(kind)
	if err != nil {
		return nil, err
	}

	entries := make([]entity.RankEntry, 0, s.limit)
	for i, t := range ranked {
		if i >= s.limit {
			break
		}
		entries = append(entries, entity.RankEntry{
			Rank:   i + 1,
			UserID: t.UserID,
			Name:   displayName(t),
			Count:  count(kind, t),
		})
	}
	return entries, nil
}

// Position returns one user's standing within a leaderboard, or nil
// when the user has no counted invitations.
func (s *Service) Position(kind entity.RankingKind, userId int64) (*entity.RankPosition, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown ranking kind: %s", kind)
	}
	ranked, err := s.rankedTotals(kind)
	if err != nil {
		return nil, err
	}
	for i, t := range ranked {
		if t.UserID == userId {
			return &entity.RankPosition{
				Rank:       i + 1,
				UserID:     t.UserID,
				Name:       displayName(t),
				Count:      count(kind, t),
				TotalUsers: len(ranked),
			}, nil
		}
	}
	return nil, nil
}

// rankedTotals loads the aggregates, drops zero counts and sorts by
// count descending with the user id as a stable tie break.
func (s *Service) rankedTotals(kind entity.RankingKind) ([]entity.UserTotals, error) {
	totals, err := s.store.UserInvitationTotals()
	if err != nil {
		return nil, fmt.Errorf("load invitation totals: %w", err)
	}

	ranked := make([]entity.UserTotals, 0, len(totals))
	for _, t := range totals {
		if count(kind, t) > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		ci, cj := count(kind, ranked[i]), count(kind, ranked[j])
		if ci != cj {
			return ci > cj
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked, nil
}

func count(kind entity.RankingKind, t entity.UserTotals) int {
	if kind == entity.RankingActive {
		n := t.TotalInvited - t.TotalLeft
		if n < 0 {
			return 0
		}
		return n
	}
	return t.TotalInvited
}

func displayName(t entity.UserTotals) string {
	u := entity.User{UserID: t.UserID, Username: t.Username, FirstName: t.FirstName}
	return u.DisplayName()
}
