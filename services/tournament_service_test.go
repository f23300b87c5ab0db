package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateHourlyWindow(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)
	require.Equal(t, "hourly:2026101712", first.WindowKey)
	require.Equal(t, models.TournamentActive, first.Status)
	require.Equal(t, time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC), first.EndsAt.UTC())
	require.Equal(t, []int64{40, 20, 10}, first.Rules.Data().PrizeSplit)

	again, err := svc.GetOrCreate(ctx, "HOURLY")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	var n int64
	require.NoError(t, db.Model(&models.Tournament{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestJoinIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	res, err := svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)
	require.True(t, res.Joined)

	res, err = svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)
	require.False(t, res.Joined)

	require.Equal(t, int64(9), reloadUser(t, db, user.ID).Coins)
	require.Equal(t, int64(1), countLedger(t, db, models.ReasonTournamentEntry))

	var stored models.Tournament
	require.NoError(t, db.First(&stored, "id = ?", tour.ID).Error)
	require.Equal(t, int64(1), stored.PrizePool)
}

func TestJoinFailuresLeaveNoTrace(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	broke := seedUser(t, db, 0)
	_, err = svc.Join(ctx, broke.ID, tour)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	blocked := seedUser(t, db, 10)
	blockUser(t, db, blocked.ID)
	_, err = svc.Join(ctx, blocked.ID, tour)
	require.ErrorIs(t, err, ErrUserBlocked)

	var participants int64
	require.NoError(t, db.Model(&models.TournamentParticipant{}).Count(&participants).Error)
	require.Zero(t, participants)

	var stored models.Tournament
	require.NoError(t, db.First(&stored, "id = ?", tour.ID).Error)
	require.Zero(t, stored.PrizePool)
	require.Equal(t, int64(10), reloadUser(t, db, blocked.ID).Coins)
}

func TestJoinAfterDeadline(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	clock.Advance(45 * time.Minute) // 12:55, deadline was 12:50
	_, err = svc.Join(ctx, user.ID, tour)
	require.ErrorIs(t, err, ErrJoinDeadlinePassed)
	require.Equal(t, int64(10), reloadUser(t, db, user.ID).Coins)
}

func TestJoinLosesAgainstSettlementClaim(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	// Another instance finished the tournament after this caller loaded it.
	require.NoError(t, db.Model(&models.Tournament{}).Where("id = ?", tour.ID).
		Update("status", models.TournamentFinished).Error)

	_, err = svc.Join(ctx, user.ID, tour)
	require.ErrorIs(t, err, ErrNotActive)
	require.Equal(t, int64(10), reloadUser(t, db, user.ID).Coins)
}

func TestSubmitScoreKeepsMaximum(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)
	outsider := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)
	_, err = svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)

	steps := []struct {
		score   int64
		updated bool
	}{
		{30, true},
		{10, false},
		{30, false},
		{50, true},
	}
	for _, step := range steps {
		res, err := svc.SubmitScore(ctx, user.ID, tour, step.score)
		require.NoError(t, err)
		require.Equal(t, step.updated, res.Updated, "score %d", step.score)
	}

	var p models.TournamentParticipant
	require.NoError(t, db.Where("user_id = ? AND tournament_id = ?", user.ID, tour.ID).First(&p).Error)
	require.Equal(t, int64(50), p.Score)

	_, err = svc.SubmitScore(ctx, user.ID, tour, -1)
	require.ErrorIs(t, err, ErrInvalidPayload)

	res, err := svc.SubmitScore(ctx, outsider.ID, tour, 100)
	require.NoError(t, err)
	require.False(t, res.Updated)

	blockUser(t, db, user.ID)
	res, err = svc.SubmitScore(ctx, user.ID, tour, 500)
	require.NoError(t, err)
	require.False(t, res.Updated)
}

func TestSubmitScoreAfterEndIsNoop(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)
	_, err = svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	res, err := svc.SubmitScore(ctx, user.ID, tour, 99)
	require.NoError(t, err)
	require.False(t, res.Updated)
}

func TestLeaderboardBreaksTiesByJoinTime(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	early := seedUser(t, db, 10)
	late := seedUser(t, db, 10)
	top := seedUser(t, db, 10)
	for _, u := range []string{early.ID, late.ID, top.ID} {
		_, err := svc.Join(ctx, u, tour)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	for id, score := range map[string]int64{early.ID: 40, late.ID: 40, top.ID: 90} {
		_, err := svc.SubmitScore(ctx, id, tour, score)
		require.NoError(t, err)
	}

	rows, err := svc.Leaderboard(ctx, tour)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{top.ID, early.ID, late.ID}, []string{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	require.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	require.Equal(t, early.Username, rows[1].Username)
}

func eventConfig(startsAt time.Time) config.TournamentConfig {
	cfg := config.DefaultTournamentConfig()
	cfg.Events = []config.EventConfig{{
		Slug:         "halloween-cup",
		Title:        "Halloween Cup",
		StartsAt:     startsAt,
		JoinDeadline: startsAt.Add(20 * time.Hour),
		EndsAt:       startsAt.Add(24 * time.Hour),
		EntryFee:     10,
		PrizePool:    1000,
		PrizeSplit:   []int64{50, 30, 20},
	}}
	return cfg
}

func TestEventLifecycle(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	start := testNow.Add(2 * time.Hour)
	svc := newTestTournamentService(db, clock, eventConfig(start))
	ctx := context.Background()
	user := seedUser(t, db, 50)

	planned, err := svc.GetOrCreate(ctx, "Halloween Cup")
	require.NoError(t, err)
	require.Equal(t, models.TournamentPlanned, planned.Status)
	require.Equal(t, "halloween-cup", *planned.Slug)

	_, err = svc.Join(ctx, user.ID, planned)
	require.ErrorIs(t, err, ErrNotActive)

	clock.Advance(3 * time.Hour)
	active, err := svc.GetOrCreate(ctx, "halloween-cup")
	require.NoError(t, err)
	require.Equal(t, planned.ID, active.ID)
	require.Equal(t, models.TournamentActive, active.Status)

	res, err := svc.Join(ctx, user.ID, active)
	require.NoError(t, err)
	require.True(t, res.Joined)

	// Event pools are pre-set; entry fees do not accrue.
	var stored models.Tournament
	require.NoError(t, db.First(&stored, "id = ?", active.ID).Error)
	require.Equal(t, int64(1000), stored.PrizePool)
	require.Equal(t, int64(40), reloadUser(t, db, user.ID).Coins)
}

func TestEventEnded(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, eventConfig(testNow.Add(-48*time.Hour)))
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "halloween-cup")
	require.ErrorIs(t, err, ErrEventEnded)

	_, err = svc.GetOrCreate(ctx, "no-such-event")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Find(ctx, "hourly")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOpen(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()

	daily, err := svc.GetOrCreate(ctx, "daily")
	require.NoError(t, err)
	hourly, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	open, err := svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, hourly.ID, open[0].ID, "soonest end first")
	require.Equal(t, daily.ID, open[1].ID)

	clock.Advance(time.Hour)
	open, err = svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, daily.ID, open[0].ID)
}

func TestConcurrentJoinChargesOnce(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)

	const workers = 8
	joined := make([]bool, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			own := *tour
			res, err := svc.Join(ctx, user.ID, &own)
			joined[i], errs[i] = res.Joined, err
		}(i)
	}
	wg.Wait()

	count := 0
	for i := range joined {
		require.NoError(t, errs[i])
		if joined[i] {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, int64(9), reloadUser(t, db, user.ID).Coins)
	require.Equal(t, int64(1), countLedger(t, db, models.ReasonTournamentEntry))

	var stored models.Tournament
	require.NoError(t, db.First(&stored, "id = ?", tour.ID).Error)
	require.Equal(t, int64(1), stored.PrizePool)
}

func TestConcurrentSubmitScoreKeepsMaximum(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)
	_, err = svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)

	scores := []int64{40, 90, 10, 75, 90, 5, 60, 89}
	errs := make([]error, len(scores))
	var wg sync.WaitGroup
	for i, score := range scores {
		wg.Add(1)
		go func(i int, score int64) {
			defer wg.Done()
			_, errs[i] = svc.SubmitScore(ctx, user.ID, tour, score)
		}(i, score)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var p models.TournamentParticipant
	require.NoError(t, db.Where("user_id = ? AND tournament_id = ?", user.ID, tour.ID).First(&p).Error)
	require.Equal(t, int64(90), p.Score)
}

func TestSubmitWindowScore(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	svc := newTestTournamentService(db, clock, config.DefaultTournamentConfig())
	ctx := context.Background()
	user := seedUser(t, db, 10)

	res, err := svc.SubmitWindowScore(ctx, user.ID, "hourly", 10)
	require.NoError(t, err)
	require.False(t, res.Updated, "no tournament opened yet")

	tour, err := svc.GetOrCreate(ctx, "hourly")
	require.NoError(t, err)
	_, err = svc.Join(ctx, user.ID, tour)
	require.NoError(t, err)

	res, err = svc.SubmitWindowScore(ctx, user.ID, "hourly", 10)
	require.NoError(t, err)
	require.True(t, res.Updated)

	clock.Advance(time.Hour)
	res, err = svc.SubmitWindowScore(ctx, user.ID, "hourly", 20)
	require.NoError(t, err)
	require.False(t, res.Updated)

	_, err = svc.SubmitWindowScore(ctx, user.ID, "no-such-event", 20)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SubmitWindowScore(ctx, user.ID, "hourly", -1)
	require.ErrorIs(t, err, ErrInvalidPayload)
}
