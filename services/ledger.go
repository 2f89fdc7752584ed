package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

const leaderboardCacheKey = "leaderboard:top"

// leaderboard snapshot size kept in the cache; reads narrower than this are
// served by truncation
const leaderboardCacheSize = 50

// PointsLedgerService is the system of record for scores. Every balance
// mutation goes through Award; nothing else writes points_current or
// points_lifetime. The Redis leaderboard snapshot is refreshed write-through
// on each award and is never authoritative over the ledger.
type PointsLedgerService struct {
	users  UserRepository
	ledger LedgerRepository
	cache  *redis.Client // optional; nil when Redis is not configured
	ttl    time.Duration
	now    func() time.Time
}

func NewPointsLedgerService(users UserRepository, ledger LedgerRepository, cache *redis.Client) *PointsLedgerService {
	return &PointsLedgerService{
		users:  users,
		ledger: ledger,
		cache:  cache,
		ttl:    10 * time.Minute,
		now:    time.Now,
	}
}

type AwardInput struct {
	Amount   int
	Reason   string
	Category string
}

func validLedgerCategory(c string) bool {
	switch c {
	case models.LedgerCategoryTask, models.LedgerCategoryFine, models.LedgerCategoryEvent, models.LedgerCategoryManual:
		return true
	}
	return false
}

// Award appends a ledger entry and applies the signed amount to the member's
// balance. The ledger append is the audit trail of record: it lands first,
// and a balance update failure is surfaced without compensating the entry
// (the balance reconciles from the ledger sum).
func (s *PointsLedgerService) Award(ctx context.Context, memberID uint, in AwardInput) (*models.LedgerEntry, error) {
	if in.Amount == 0 {
		return nil, validationf("amount must not be zero")
	}
	if in.Reason == "" {
		return nil, validationf("reason is required")
	}
	if !validLedgerCategory(in.Category) {
		return nil, validationf("unknown ledger category %q", in.Category)
	}
	member, err := s.users.FindByID(ctx, memberID)
	if err != nil {
		return nil, notFoundf("member %d", memberID)
	}

	entry := &models.LedgerEntry{
		UserID:   member.ID,
		Amount:   in.Amount,
		IsDebit:  in.Amount < 0,
		Reason:   in.Reason,
		Category: in.Category,
		OrderID:  uuid.NewString(),
	}
	if entry.IsDebit {
		entry.Amount = -in.Amount
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, Externalw("append ledger entry", err)
	}
	if err := s.users.UpdatePoints(ctx, member.ID, in.Amount); err != nil {
		return nil, Externalw("update balance", err)
	}

	s.refreshCache(ctx)
	return entry, nil
}

// AwardByExternalID resolves the chat-platform identity first.
func (s *PointsLedgerService) AwardByExternalID(ctx context.Context, externalID string, in AwardInput) (*models.LedgerEntry, error) {
	member, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, notFoundf("member %s", externalID)
	}
	return s.Award(ctx, member.ID, in)
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	MemberID       uint   `json:"member_id"`
	Name           string `json:"name"`
	Handle         string `json:"handle,omitempty"`
	PointsCurrent  int    `json:"points_current"`
	PointsLifetime int    `json:"points_lifetime"`
}

// GetLeaderboard returns the top members by current points. Ties break by
// lifetime points, then member id, so ordering is deterministic on both the
// cached and the direct path. Cache misses or Redis outages fall back to
// direct aggregation.
func (s *PointsLedgerService) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.cache != nil && limit <= leaderboardCacheSize {
		if raw, err := s.cache.Get(ctx, leaderboardCacheKey).Result(); err == nil {
			var entries []LeaderboardEntry
			if json.Unmarshal([]byte(raw), &entries) == nil {
				if len(entries) > limit {
					entries = entries[:limit]
				}
				return entries, nil
			}
		}
		// any Redis failure falls through to the source of truth
	}

	entries, err := s.computeLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetUserRank is 1 + the number of members with strictly more points.
func (s *PointsLedgerService) GetUserRank(ctx context.Context, memberID uint) (int, error) {
	member, err := s.users.FindByID(ctx, memberID)
	if err != nil {
		return 0, notFoundf("member %d", memberID)
	}
	ahead, err := s.users.CountWithPointsGreaterThan(ctx, member.PointsCurrent)
	if err != nil {
		return 0, Externalw("count members", err)
	}
	return int(ahead) + 1, nil
}

// History returns a member's ledger entries, newest first.
func (s *PointsLedgerService) History(ctx context.Context, memberID uint, category string, limit int) ([]models.LedgerEntry, error) {
	if category != "" && !validLedgerCategory(category) {
		return nil, validationf("unknown ledger category %q", category)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.ledger.FindByUser(ctx, memberID, category, limit)
	if err != nil {
		return nil, Externalw("list ledger entries", err)
	}
	return entries, nil
}

// Reconcile compares a member's balance against the signed sum of their
// ledger entries. Drift indicates a write that landed on only one side.
func (s *PointsLedgerService) Reconcile(ctx context.Context, memberID uint) (balance int, ledgerSum int64, err error) {
	member, err := s.users.FindByID(ctx, memberID)
	if err != nil {
		return 0, 0, notFoundf("member %d", memberID)
	}
	sum, err := s.ledger.SumByUser(ctx, memberID)
	if err != nil {
		return 0, 0, Externalw("sum ledger entries", err)
	}
	return member.PointsCurrent, sum, nil
}

func (s *PointsLedgerService) computeLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	members, err := s.users.FindTopByPoints(ctx, limit)
	if err != nil {
		return nil, Externalw("aggregate leaderboard", err)
	}
	entries := make([]LeaderboardEntry, 0, len(members))
	for i, m := range members {
		entries = append(entries, LeaderboardEntry{
			Rank:           i + 1,
			MemberID:       m.ID,
			Name:           m.Name,
			Handle:         m.Handle,
			PointsCurrent:  m.PointsCurrent,
			PointsLifetime: m.PointsLifetime,
		})
	}
	return entries, nil
}

// refreshCache rebuilds the cached snapshot, display metadata included, from
// the source of truth. Redis being down never fails an award.
func (s *PointsLedgerService) refreshCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	entries, err := s.computeLeaderboard(ctx, leaderboardCacheSize)
	if err != nil {
		log.Printf("[ledger] leaderboard cache refresh: %v", err)
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, leaderboardCacheKey, raw, s.ttl).Err(); err != nil {
		log.Printf("[ledger] leaderboard cache write: %v", err)
	}
}
