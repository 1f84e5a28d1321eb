package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
)

var (
	// ErrNotWaiting 페어링 시도 시점에 본인 엔트리가 이미 소비됨 (취소 또는 타 매치)
	ErrNotWaiting = errors.New("user is not waiting")

	// ErrPairingConflict 동시 페어링 경합에서 패배 (재시도하면 됨)
	ErrPairingConflict = errors.New("pairing lost a concurrent race")
)

// ResolveFunc 두 로케이션 ID로 배틀 결과를 계산하는 순수 함수.
// 페어링 트랜잭션 내부에서 호출되므로 I/O 없이 즉시 반환해야 한다.
type ResolveFunc func(player1LocationID, player2LocationID int64) (models.BattleResult, models.BattleResult, error)

type MatchmakingRepository struct {
	db *database.DB
}

func NewMatchmakingRepository(db *database.DB) *MatchmakingRepository {
	return &MatchmakingRepository{db: db}
}

// Pair 원자적 페어링 트랜잭션:
// 본인 엔트리 행 잠금 → 상대 선택(SKIP LOCKED, FIFO) → 매치 INSERT → 대기열 두 행 DELETE → COMMIT.
// 상대가 없으면 (nil, nil). 경합에서 지면 ErrPairingConflict.
// 취소(DELETE WHERE user_id)는 같은 행 잠금에 직렬화되므로 취소와 페어링은 상호 배타적이다.
func (r *MatchmakingRepository) Pair(ctx context.Context, userID string, resolve ResolveFunc) (*models.Match, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin pairing transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 본인 대기 엔트리 잠금 (취소가 먼저 커밋됐으면 이미 없음)
	var myEntry models.WaitlistEntry
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, location_id, created_at
		FROM toilet_smash_waitlist
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&myEntry.ID, &myEntry.UserID, &myEntry.LocationID, &myEntry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotWaiting
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock own waitlist entry: %w", err)
	}

	// 2. 상대 선택: 가장 오래 기다린 엔트리, 다른 트랜잭션이 잠근 행은 건너뜀
	var opponent models.WaitlistEntry
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, location_id, created_at
		FROM toilet_smash_waitlist
		WHERE user_id <> $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, userID).Scan(&opponent.ID, &opponent.UserID, &opponent.LocationID, &opponent.CreatedAt)

	if err == sql.ErrNoRows {
		// 상대 없음: 에러가 아니라 유효한 대기 상태
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select opponent: %w", err)
	}

	// 3. 배틀 결과 계산 (순수 함수, 트랜잭션 내 I/O 없음)
	result1, result2, err := resolve(myEntry.LocationID, opponent.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve battle: %w", err)
	}

	// 4. 매치 생성
	match := &models.Match{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO toilet_smash_matches
			(player1_id, player2_id, player1_location_id, player2_location_id, player1_result, player2_result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, player1_id, player2_id, player1_location_id, player2_location_id,
		          player1_result, player2_result, created_at
	`,
		myEntry.UserID,
		opponent.UserID,
		myEntry.LocationID,
		opponent.LocationID,
		string(result1),
		string(result2),
	).Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.Player1LocationID,
		&match.Player2LocationID,
		&match.Player1Result,
		&match.Player2Result,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	// 5. 대기열 두 행 삭제 (둘 다 지워지지 않으면 전체 롤백)
	result, err := tx.ExecContext(ctx, `
		DELETE FROM toilet_smash_waitlist
		WHERE id = $1 OR id = $2
	`, myEntry.ID, opponent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete paired entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected != 2 {
		return nil, ErrPairingConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pairing transaction: %w", err)
	}

	return match, nil
}
