package services

import (
	"fmt"
	"testing"
	"time"

	"game-economy-service/config"
	"game-economy-service/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 12:10 UTC, inside the hourly join window.
var testNow = time.Date(2026, 10, 17, 12, 10, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

var zapNop = zap.NewNop()

var telegramSeq int64

func seedUser(t *testing.T, db *gorm.DB, coins int64) *models.User {
	t.Helper()
	telegramSeq++
	u := models.User{
		ID:         uuid.NewString(),
		TelegramID: 1000 + telegramSeq,
		Username:   fmt.Sprintf("player%d", telegramSeq),
		InviteCode: fmt.Sprintf("CODE%06d", telegramSeq),
		Coins:      coins,
		Level:      1,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return u
}

func blockUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", id).Update("is_blocked", true).Error)
}

func countLedger(t *testing.T, db *gorm.DB, reason models.LedgerReason) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Where("reason = ?", reason).Count(&n).Error)
	return n
}

func newTestTournamentService(db *gorm.DB, clock clockwork.Clock, cfg config.TournamentConfig) *TournamentService {
	return NewTournamentService(db, NewLedger(clock), clock, cfg, zapNop)
}
