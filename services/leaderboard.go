package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"okr-progression-system/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const leaderboardKeyPrefix = "leaderboard:"

// ScopeKind selects the score data a ranking is computed over.
type ScopeKind string

const (
	ScopeGlobal          ScopeKind = "global"
	ScopeGlobalSolo      ScopeKind = "global-solo"
	ScopeGlobalTeam      ScopeKind = "global-team"
	ScopeGlobalChallenge ScopeKind = "global-challenge"
	ScopeCampaign        ScopeKind = "campaign"
	ScopeTeam            ScopeKind = "team"
)

type Scope struct {
	Kind ScopeKind
	ID   string
}

func (s Scope) String() string {
	if s.ID != "" {
		return string(s.Kind) + ":" + s.ID
	}
	return string(s.Kind)
}

// ParseScope accepts "global", "global-solo", "global-team", "global-challenge",
// "campaign:<id>" and "team:<id>".
func ParseScope(raw string) (Scope, error) {
	kind, id, _ := strings.Cut(strings.TrimSpace(raw), ":")
	switch ScopeKind(kind) {
	case ScopeGlobal, ScopeGlobalSolo, ScopeGlobalTeam, ScopeGlobalChallenge:
		if id != "" {
			return Scope{}, ValidationError("scope %q takes no id", kind)
		}
		return Scope{Kind: ScopeKind(kind)}, nil
	case ScopeCampaign, ScopeTeam:
		if id == "" {
			return Scope{}, ValidationError("scope %q requires an id", kind)
		}
		return Scope{Kind: ScopeKind(kind), ID: id}, nil
	}
	return Scope{}, ValidationError("unknown leaderboard scope %q", raw)
}

type scopedStream struct {
	stream models.ScoreRecord
	filter string
}

func (s Scope) streams() []scopedStream {
	switch s.Kind {
	case ScopeGlobalSolo:
		return []scopedStream{{stream: &models.SoloScore{}}}
	case ScopeGlobalTeam:
		return []scopedStream{{stream: &models.TeamScore{}}}
	case ScopeGlobalChallenge:
		return []scopedStream{{stream: &models.ChallengeModeScore{}}}
	case ScopeCampaign:
		return []scopedStream{{stream: &models.CampaignModeScore{}, filter: "campaign_id"}}
	case ScopeTeam:
		return []scopedStream{{stream: &models.TeamScore{}, filter: "team_id"}}
	}
	all := models.ScoreStreams()
	out := make([]scopedStream, len(all))
	for i, st := range all {
		out[i] = scopedStream{stream: st}
	}
	return out
}

type Performance struct {
	Percentage int    `json:"percentage"`
	Title      string `json:"title"`
}

type RankingEntry struct {
	Rank        int             `json:"rank"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	AvatarURL   *string         `json:"avatar_url,omitempty"`
	TotalScore  decimal.Decimal `json:"total_score"`
	RecordCount int64           `json:"record_count"`
	Level       int             `json:"level"`
	LevelTitle  string          `json:"level_title"`
	Performance Performance     `json:"performance"`
}

type Ranking struct {
	Scope       string         `json:"scope"`
	TopThree    []RankingEntry `json:"top_three"`
	Remaining   []RankingEntry `json:"remaining"`
	UserDetails *RankingEntry  `json:"user_details"`
	TotalUsers  int            `json:"total_users"`
}

// LeaderboardService builds ranked views. Cache is optional.
type LeaderboardService struct {
	Store
	Ladder   *LadderService
	XP       *XPService
	Cache    *redis.Client
	CacheTTL time.Duration
}

func NewLeaderboardService(store Store, ladder *LadderService, xp *XPService, cache *redis.Client, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{Store: store, Ladder: ladder, XP: xp, Cache: cache, CacheTTL: ttl}
}

// BuildRanking returns nil, nil when the scope has no score rows yet.
func (s *LeaderboardService) BuildRanking(ctx context.Context, scope Scope, viewerID string) (*Ranking, error) {
	entries, err := s.rankedEntries(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return partitionRanking(scope, entries, viewerID), nil
}

func partitionRanking(scope Scope, entries []RankingEntry, viewerID string) *Ranking {
	cut := min(3, len(entries))
	r := &Ranking{
		Scope:      scope.String(),
		TopThree:   entries[:cut],
		Remaining:  entries[cut:],
		TotalUsers: len(entries),
	}
	for i := range entries {
		if entries[i].UserID == viewerID {
			viewer := entries[i]
			r.UserDetails = &viewer
			break
		}
	}
	return r
}

func (s *LeaderboardService) rankedEntries(ctx context.Context, scope Scope) ([]RankingEntry, error) {
	key := leaderboardKeyPrefix + scope.String()
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	aggs, err := s.aggregate(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, nil
	}

	tiers, err := s.Ladder.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.userDirectory(ctx, aggs)
	if err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, 0, len(aggs))
	for _, a := range aggs {
		tier := ResolveLevel(tiers, a.Total)
		e := RankingEntry{
			UserID:      a.UserID,
			Name:        a.UserID,
			TotalScore:  a.Total,
			RecordCount: a.Records,
			Level:       tier.Level,
			LevelTitle:  tier.Title,
			Performance: performanceOf(a.Total, a.Records),
		}
		if u, ok := names[a.UserID]; ok {
			e.Name = u.DisplayName()
			e.AvatarURL = u.ProfilePictureURL
		}
		entries = append(entries, e)
	}
	sortEntries(entries)

	s.store(ctx, key, entries)
	return entries, nil
}

type userAggregate struct {
	UserID  string
	Total   decimal.Decimal
	Records int64
}

func (s *LeaderboardService) aggregate(ctx context.Context, scope Scope) ([]userAggregate, error) {
	streams := scope.streams()
	results := make([][]userAggregate, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range streams {
		g.Go(func() error {
			rows, err := s.groupStream(gctx, st, scope.ID)
			if err != nil {
				return fmt.Errorf("aggregate %s: %w", st.stream.ScoreMode(), err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*userAggregate)
	var order []string
	for _, rows := range results {
		for _, r := range rows {
			a, ok := merged[r.UserID]
			if !ok {
				a = &userAggregate{UserID: r.UserID, Total: decimal.Zero}
				merged[r.UserID] = a
				order = append(order, r.UserID)
			}
			a.Total = a.Total.Add(r.Total)
			a.Records += r.Records
		}
	}
	out := make([]userAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	return out, nil
}

func (s *LeaderboardService) groupStream(ctx context.Context, st scopedStream, scopeID string) ([]userAggregate, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Model(st.stream).
		Select(fmt.Sprintf("user_id, COALESCE(SUM(%s), 0) AS total, COUNT(*) AS records", st.stream.XPColumn())).
		Group("user_id")
	if st.filter != "" {
		q = q.Where(st.filter+" = ?", scopeID)
	}
	var rows []userAggregate
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LeaderboardService) userDirectory(ctx context.Context, aggs []userAggregate) (map[string]models.User, error) {
	ids := make([]string, len(aggs))
	for i, a := range aggs {
		ids[i] = a.UserID
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var users []models.User
	if err := db.Where("external_user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load user names: %w", err)
	}
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.ExternalUserID] = u
	}
	return out, nil
}

// sortEntries orders by level, then score, both descending; user id breaks
// the remaining ties so identical input always ranks identically.
func sortEntries(entries []RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if c := a.TotalScore.Cmp(b.TotalScore); c != 0 {
			return c > 0
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// performanceOf is the share of the maximum possible score (100 per record).
func performanceOf(total decimal.Decimal, records int64) Performance {
	if records <= 0 {
		return Performance{Percentage: 0, Title: "Beginner"}
	}
	pct := int(total.Div(decimal.NewFromInt(records)).Round(0).IntPart())
	switch {
	case pct >= 90:
		return Performance{Percentage: pct, Title: "Expert"}
	case pct >= 75:
		return Performance{Percentage: pct, Title: "Advanced"}
	case pct >= 50:
		return Performance{Percentage: pct, Title: "Intermediate"}
	}
	return Performance{Percentage: pct, Title: "Beginner"}
}

func (s *LeaderboardService) cached(ctx context.Context, key string) ([]RankingEntry, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("[LEADERBOARD] cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	var entries []RankingEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Warn("[LEADERBOARD] cache entry unreadable", "key", key, "err", err)
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) store(ctx context.Context, key string, entries []RankingEntry) {
	if s.Cache == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, key, raw, s.CacheTTL).Err(); err != nil {
		slog.Warn("[LEADERBOARD] cache write failed", "key", key, "err", err)
	}
}

// Invalidate drops cached rankings touched by a new score in mode.
func (s *LeaderboardService) Invalidate(ctx context.Context, mode models.Mode, scopeID string) {
	if s.Cache == nil {
		return
	}
	keys := []string{leaderboardKeyPrefix + string(ScopeGlobal)}
	switch mode {
	case models.ModeSolo:
		keys = append(keys, leaderboardKeyPrefix+string(ScopeGlobalSolo))
	case models.ModeTeam:
		keys = append(keys, leaderboardKeyPrefix+string(ScopeGlobalTeam))
		if scopeID != "" {
			keys = append(keys, leaderboardKeyPrefix+Scope{Kind: ScopeTeam, ID: scopeID}.String())
		}
	case models.ModeChallenge:
		keys = append(keys, leaderboardKeyPrefix+string(ScopeGlobalChallenge))
	case models.ModeCampaign:
		if scopeID != "" {
			keys = append(keys, leaderboardKeyPrefix+Scope{Kind: ScopeCampaign, ID: scopeID}.String())
		}
	}
	if err := s.Cache.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("[LEADERBOARD] cache invalidation failed", "keys", keys, "err", err)
	}
}

// UserProgress is derived on every call and never stored.
type UserProgress struct {
	UserID       string                          `json:"user_id"`
	TotalXP      decimal.Decimal                 `json:"total_xp"`
	Breakdown    map[models.Mode]decimal.Decimal `json:"breakdown"`
	Level        int                             `json:"level"`
	LevelTitle   string                          `json:"level_title"`
	NextLevel    *models.LevelTier               `json:"next_level,omitempty"`
	Rank         int                             `json:"rank"`
	TotalUsers   int                             `json:"total_users"`
	Certificates int64                           `json:"certificates"`
}

// Profile is the cross-mode view: total XP, resolved level and global rank.
// A user with no scores ranks after every scored user.
func (s *LeaderboardService) Profile(ctx context.Context, userID string) (*UserProgress, error) {
	xp, err := s.XP.ComputeTotalXP(ctx, userID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.Ladder.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.rankedEntries(ctx, Scope{Kind: ScopeGlobal})
	if err != nil {
		return nil, err
	}

	tier := ResolveLevel(tiers, xp.Total)
	p := &UserProgress{
		UserID:     userID,
		TotalXP:    xp.Total,
		Breakdown:  xp.PerMode,
		Level:      tier.Level,
		LevelTitle: tier.Title,
		Rank:       len(entries) + 1,
		TotalUsers: len(entries),
	}
	for _, t := range tiers {
		if decimal.NewFromInt(t.XPThreshold).GreaterThan(xp.Total) {
			next := t
			p.NextLevel = &next
			break
		}
	}
	for _, e := range entries {
		if e.UserID == userID {
			p.Rank = e.Rank
			break
		}
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var mirrored int64
	if err := db.Model(&models.User{}).Count(&mirrored).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if int(mirrored) > p.TotalUsers {
		p.TotalUsers = int(mirrored)
	}
	if err := db.Model(&models.CampaignModeScore{}).
		Where("user_id = ? AND level = ?", userID, models.CertificationLevel).
		Count(&p.Certificates).Error; err != nil {
		return nil, fmt.Errorf("count certificates: %w", err)
	}
	return p, nil
}
