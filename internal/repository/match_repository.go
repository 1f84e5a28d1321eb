package repository

import (
	"database/sql"
	"fmt"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// FindByID ID로 매치 조회
func (r *MatchRepository) FindByID(id string) (*models.Match, error) {
	query := `
		SELECT id, player1_id, player2_id, player1_location_id, player2_location_id,
		       player1_result, player2_result, created_at
		FROM toilet_smash_matches
		WHERE id = $1
	`

	match := &models.Match{}
	err := r.db.QueryRow(query, id).Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.Player1LocationID,
		&match.Player2LocationID,
		&match.Player1Result,
		&match.Player2Result,
		&match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	return match, nil
}

// FindLatestByUserID 유저의 최신 매치 조회 (폴링 경로)
func (r *MatchRepository) FindLatestByUserID(userID string) (*models.Match, error) {
	query := `
		SELECT id, player1_id, player2_id, player1_location_id, player2_location_id,
		       player1_result, player2_result, created_at
		FROM toilet_smash_matches
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	match := &models.Match{}
	err := r.db.QueryRow(query, userID).Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.Player1LocationID,
		&match.Player2LocationID,
		&match.Player1Result,
		&match.Player2Result,
		&match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find match for user: %w", err)
	}

	return match, nil
}
