package audrey

import (
	"fmt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"log/slog"
	"time"
)

const (
	columnUserID          = "user_id"
	columnUserScorePoints = "points"
	columnUserScoreLevel  = "level"

	// pointsPerLevel is the score arithmetic for the mini-games:
	// one level per hundred points
	pointsPerLevel   = 100
	pointsTarotDraw  = 5
	pointsRiddleWin  = 20
	dbMaxOpenConns   = 1
	dbMaxIdleConns   = 1
	dbConnMaxLifetme = 5 * time.Minute
)

var sqliteExecPragma = []string{
	"pragma journal_mode=WAL;",
	"pragma synchronous = normal;",
	"pragma temp_store = memory;",
	"pragma foreign_keys = ON;",
}

// ModelUnixTime is an embeddable model with Unix millisecond
// timestamps for creation and update.
type ModelUnixTime struct {
	CreatedAt int64 `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli" json:"updated_at,omitempty"`
}

// TarotDraw logs one /tarot draw.
type TarotDraw struct {
	ID string `gorm:"primaryKey" json:"id"`
	ModelUnixTime
	UserID   string `gorm:"index" json:"user_id"`
	Username string `json:"username"`
	Card     string `json:"card"`
	Meaning  string `json:"meaning"`
	Points   int    `json:"points"`
}

// UserScore accumulates mini-game points per user. Level is derived
// from points and stored alongside for cheap display.
type UserScore struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	ModelUnixTime
	Points int `json:"points"`
	Level  int `json:"level"`
}

// CreateDB opens (creating if needed) the sqlite database at the
// given path, applies the WAL pragmas and migrates the mini-game
// models.
func CreateDB(
	path string,
	logHandler slog.Handler,
	slowThreshold time.Duration,
) (*gorm.DB, error) {
	db, err := gorm.Open(
		sqlite.Open(path),
		&gorm.Config{Logger: newGORMLogger(logHandler, slowThreshold)},
	)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(dbMaxOpenConns)
	sqlDB.SetMaxIdleConns(dbMaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbConnMaxLifetme)

	for _, pragma := range sqliteExecPragma {
		if err = db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error executing %q: %w", pragma, err)
		}
	}

	if err = db.AutoMigrate(&TarotDraw{}, &UserScore{}); err != nil {
		return nil, fmt.Errorf("error migrating models: %w", err)
	}
	return db, nil
}

// awardPoints adds n points to the user's score, recomputing the
// level, creating the row on first award.
func awardPoints(db *gorm.DB, userID string, n int) (UserScore, error) {
	var score UserScore
	err := db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Where(
				"user_id = ?", userID,
			).FirstOrCreate(&score, UserScore{UserID: userID}).Error; err != nil {
				return err
			}
			score.Points += n
			score.Level = score.Points / pointsPerLevel
			return tx.Model(&score).Updates(
				map[string]any{
					columnUserScorePoints: score.Points,
					columnUserScoreLevel:  score.Level,
				},
			).Error
		},
	)
	return score, err
}
