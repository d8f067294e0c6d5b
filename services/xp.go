package services

import (
	"context"
	"fmt"

	"okr-progression-system/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// XPBreakdown is a user's XP per score stream plus the cross-mode total.
type XPBreakdown struct {
	UserID  string                          `json:"user_id"`
	PerMode map[models.Mode]decimal.Decimal `json:"per_mode"`
	Records map[models.Mode]int64           `json:"records"`
	Total   decimal.Decimal                 `json:"total_xp"`
}

type XPService struct {
	Store
}

func NewXPService(store Store) *XPService {
	return &XPService{Store: store}
}

type streamTotal struct {
	Total   decimal.Decimal
	Records int64
}

// ComputeTotalXP sums every score stream for userID. Streams are queried
// concurrently; a stream without rows contributes zero.
func (s *XPService) ComputeTotalXP(ctx context.Context, userID string) (XPBreakdown, error) {
	streams := models.ScoreStreams()
	totals := make([]streamTotal, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	for i, stream := range streams {
		g.Go(func() error {
			t, err := s.streamTotal(gctx, stream, userID)
			if err != nil {
				return fmt.Errorf("sum %s: %w", stream.ScoreMode(), err)
			}
			totals[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return XPBreakdown{}, err
	}

	out := XPBreakdown{
		UserID:  userID,
		PerMode: make(map[models.Mode]decimal.Decimal, len(streams)),
		Records: make(map[models.Mode]int64, len(streams)),
		Total:   decimal.Zero,
	}
	for i, stream := range streams {
		out.PerMode[stream.ScoreMode()] = totals[i].Total
		out.Records[stream.ScoreMode()] = totals[i].Records
		out.Total = out.Total.Add(totals[i].Total)
	}
	return out, nil
}

func (s *XPService) streamTotal(ctx context.Context, stream models.ScoreRecord, userID string) (streamTotal, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var row streamTotal
	err := db.Model(stream).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0) AS total, COUNT(*) AS records", stream.XPColumn())).
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row, err
}
