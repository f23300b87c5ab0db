package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"
	"game-economy-service/services/mocks"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type memoryArchive struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (a *memoryArchive) Put(_ context.Context, key string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.puts == nil {
		a.puts = map[string][]byte{}
	}
	a.puts[key] = body
	return nil
}

type settlementFixture struct {
	db      *gorm.DB
	clock   *clockwork.FakeClock
	svc     *TournamentService
	tour    *models.Tournament
	players []*models.User
}

// newSettlementFixture opens the 12:00 hourly window and joins one player per score.
func newSettlementFixture(t *testing.T, scores ...int64) *settlementFixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	f := &settlementFixture{db: db, clock: clock, svc: svc, tour: tour}
	for _, score := range scores {
		u := seedUser(t, db, 10)
		_, err := svc.Join(ctx, u.ID, tour)
		require.NoError(t, err)
		if score > 0 {
			_, err = svc.SubmitScore(ctx, u.ID, tour, score)
			require.NoError(t, err)
		}
		f.players = append(f.players, u)
		clock.Advance(time.Second)
	}
	return f
}

func (f *settlementFixture) settler(n Notifier, opts ...SettlerOption) *Settler {
	return NewSettler(f.db, NewLedger(f.clock), n, f.clock, 50, config.DefaultPrizeSplit, zapNop, opts...)
}

func (f *settlementFixture) expire() {
	f.clock.Advance(time.Hour)
}

func (f *settlementFixture) participant(t *testing.T, userID string) models.TournamentParticipant {
	t.Helper()
	var p models.TournamentParticipant
	require.NoError(t, f.db.Where("tournament_id = ? AND user_id = ?", f.tour.ID, userID).First(&p).Error)
	return p
}

func TestSettlementPaysFlooredSplit(t *testing.T) {
	f := newSettlementFixture(t, 10, 30, 20)
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	for _, p := range f.players {
		notifier.EXPECT().Send(gomock.Any(), p.ID, gomock.Any()).Return(nil).Times(1)
	}
	archive := &memoryArchive{}

	f.expire()
	report, err := f.settler(notifier, WithArchive(archive)).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, SettleReport{Candidates: 1, Settled: 1}, report)

	p1, p2, p3 := f.players[0], f.players[1], f.players[2]
	want := map[string]struct {
		rank  int
		prize int64
	}{
		p2.ID: {1, 1}, // 40% of 3
		p3.ID: {2, 0}, // 20% of 3
		p1.ID: {3, 0}, // 10% of 3
	}
	for id, w := range want {
		got := f.participant(t, id)
		require.Equal(t, w.rank, got.FinalRank)
		require.Equal(t, w.prize, got.Prize)
	}

	// 10 coins, 1 entry fee, 1 prize for the winner.
	require.Equal(t, int64(10), reloadUser(t, f.db, p2.ID).Coins)
	require.Equal(t, int64(9), reloadUser(t, f.db, p1.ID).Coins)
	require.Equal(t, int64(1), countLedger(t, f.db, models.ReasonTournamentPrize))

	var tour models.Tournament
	require.NoError(t, f.db.First(&tour, "id = ?", f.tour.ID).Error)
	require.Equal(t, models.TournamentFinished, tour.Status)
	require.NotNil(t, tour.FinishedAt)
	require.NotNil(t, tour.PaidOutAt)

	require.Len(t, archive.puts, 1)
	for key, body := range archive.puts {
		require.Contains(t, key, f.tour.ID)
		var receipt settlementReceipt
		require.NoError(t, json.Unmarshal(body, &receipt))
		require.Equal(t, int64(3), receipt.PrizePool)
		require.Equal(t, int64(1), receipt.Distributed)
		require.Len(t, receipt.Standings, 3)
		require.Equal(t, p2.ID, receipt.Standings[0].UserID)
	}
}

func TestSettlementRunsExactlyOnce(t *testing.T) {
	f := newSettlementFixture(t, 500, 100)
	require.NoError(t, f.db.Model(&models.Tournament{}).Where("id = ?", f.tour.ID).
		Update("prize_pool", 100).Error)
	f.expire()

	const workers = 4
	reports := make([]SettleReport, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = f.settler(NewLogNotifier(zapNop)).RunOnce(context.Background())
		}(i)
	}
	wg.Wait()

	settled := 0
	for i := range reports {
		require.NoError(t, errs[i])
		settled += reports[i].Settled
	}
	require.Equal(t, 1, settled)
	require.Equal(t, int64(2), countLedger(t, f.db, models.ReasonTournamentPrize))
	require.Equal(t, int64(49), reloadUser(t, f.db, f.players[0].ID).Coins)
	require.Equal(t, int64(29), reloadUser(t, f.db, f.players[1].ID).Coins)

	report, err := f.settler(nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Candidates)
}

func TestSettleLosesClaimOnFinishedTournament(t *testing.T) {
	f := newSettlementFixture(t, 10)
	f.expire()
	s := f.settler(nil)

	won, err := s.Settle(context.Background(), f.tour.ID)
	require.NoError(t, err)
	require.True(t, won)

	var before models.Tournament
	require.NoError(t, f.db.First(&before, "id = ?", f.tour.ID).Error)

	f.clock.Advance(time.Minute)
	won, err = s.Settle(context.Background(), f.tour.ID)
	require.NoError(t, err)
	require.False(t, won)

	var after models.Tournament
	require.NoError(t, f.db.First(&after, "id = ?", f.tour.ID).Error)
	require.Equal(t, models.TournamentFinished, after.Status)
	require.True(t, before.FinishedAt.Equal(*after.FinishedAt))
	require.True(t, before.PaidOutAt.Equal(*after.PaidOutAt))
}

func TestSettleSkipsRunningTournament(t *testing.T) {
	f := newSettlementFixture(t, 10)
	report, err := f.settler(nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Candidates)

	won, err := f.settler(nil).Settle(context.Background(), f.tour.ID)
	require.NoError(t, err)
	require.False(t, won)
}

func TestSettleWithoutParticipants(t *testing.T) {
	f := newSettlementFixture(t)
	f.expire()

	report, err := f.settler(nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Settled)

	var tour models.Tournament
	require.NoError(t, f.db.First(&tour, "id = ?", f.tour.ID).Error)
	require.Equal(t, models.TournamentFinished, tour.Status)
	require.NotNil(t, tour.PaidOutAt)
}

func TestSettlementSurvivesNotificationFailures(t *testing.T) {
	f := newSettlementFixture(t, 10, 30, 20)
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("bot was blocked by the user")).Times(3)

	f.expire()
	report, err := f.settler(notifier).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Settled)
	require.Equal(t, int64(1), f.participant(t, f.players[1].ID).Prize)
}

func TestSettlementWithholdsPrizeFromBlockedWinner(t *testing.T) {
	f := newSettlementFixture(t, 10, 30, 20)
	// Grow the pool so second place also earns.
	require.NoError(t, f.db.Model(&models.Tournament{}).Where("id = ?", f.tour.ID).
		Update("prize_pool", 100).Error)
	winner := f.players[1]
	blockUser(t, f.db, winner.ID)

	f.expire()
	report, err := f.settler(nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Settled)

	require.Equal(t, 1, f.participant(t, winner.ID).FinalRank)
	require.Zero(t, f.participant(t, winner.ID).Prize)
	require.Equal(t, int64(9), reloadUser(t, f.db, winner.ID).Coins)

	second := f.participant(t, f.players[2].ID)
	require.Equal(t, 2, second.FinalRank)
	require.Equal(t, int64(20), second.Prize)
	require.Equal(t, int64(29), reloadUser(t, f.db, f.players[2].ID).Coins)
}

func TestPromoteDueActivatesPlannedTournaments(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, eventConfig(testNow.Add(time.Hour)))

	tour, err := svc.GetOrCreate(context.Background(), "halloween-cup")
	require.NoError(t, err)
	require.Equal(t, models.TournamentPlanned, tour.Status)

	s := NewSettler(db, NewLedger(clock), nil, clock, 0, config.DefaultPrizeSplit, zapNop)
	n, err := s.PromoteDue(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	clock.Advance(time.Hour)
	n, err = s.PromoteDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRankParticipants(t *testing.T) {
	base := testNow
	ps := []models.TournamentParticipant{
		{ID: "a", Score: 10, JoinedAt: base},
		{ID: "b", Score: 30, JoinedAt: base.Add(time.Second)},
		{ID: "c", Score: 30, JoinedAt: base},
		{ID: "d", Score: 0, JoinedAt: base},
	}
	ranked := RankParticipants(ps)
	ids := make([]string, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	require.Equal(t, []string{"c", "b", "a", "d"}, ids)
	require.Equal(t, "a", ps[0].ID, "input must not be reordered")
}

func TestComputePrizes(t *testing.T) {
	tests := []struct {
		pool  int64
		split []int64
		want  []int64
	}{
		{3, []int64{40, 20, 10}, []int64{1, 0, 0}},
		{100, []int64{40, 20, 10}, []int64{40, 20, 10}},
		{1000, []int64{50, 30, 20}, []int64{500, 300, 200}},
		{7, []int64{50, 50}, []int64{3, 3}},
		{0, []int64{40, 20, 10}, []int64{0, 0, 0}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ComputePrizes(tt.pool, tt.split), "pool %d", tt.pool)
	}
}
