package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
)

var (
	// ErrDuplicateEntry 유저가 이미 대기열에 존재
	ErrDuplicateEntry = errors.New("waitlist entry already exists for user")
)

const uniqueViolationCode = "23505"

type WaitlistRepository struct {
	db *database.DB
}

func NewWaitlistRepository(db *database.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Insert 대기열에 엔트리 추가 (user_id 유니크 인덱스가 중복을 차단)
func (r *WaitlistRepository) Insert(userID string, locationID int64) (*models.WaitlistEntry, error) {
	query := `
		INSERT INTO toilet_smash_waitlist (user_id, location_id)
		VALUES ($1, $2)
		RETURNING id, user_id, location_id, created_at
	`

	entry := &models.WaitlistEntry{}
	err := r.db.QueryRow(query, userID, locationID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.LocationID,
		&entry.CreatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("failed to insert waitlist entry: %w", err)
	}

	return entry, nil
}

// Delete 대기열에서 유저 제거 (존재 여부를 반환, 없어도 에러 아님)
func (r *WaitlistRepository) Delete(userID string) (bool, error) {
	query := `
		DELETE FROM toilet_smash_waitlist
		WHERE user_id = $1
	`

	result, err := r.db.Exec(query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete waitlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// FindByUserID 유저의 대기 엔트리 조회
func (r *WaitlistRepository) FindByUserID(userID string) (*models.WaitlistEntry, error) {
	query := `
		SELECT id, user_id, location_id, created_at
		FROM toilet_smash_waitlist
		WHERE user_id = $1
	`

	entry := &models.WaitlistEntry{}
	err := r.db.QueryRow(query, userID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.LocationID,
		&entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find waitlist entry: %w", err)
	}

	return entry, nil
}

// FindOldest 오래된 순으로 대기 엔트리 조회 (백그라운드 페어링 스윕용)
func (r *WaitlistRepository) FindOldest(limit int) ([]models.WaitlistEntry, error) {
	query := `
		SELECT id, user_id, location_id, created_at
		FROM toilet_smash_waitlist
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.LocationID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waitlist: %w", err)
	}

	return entries, nil
}

// DeleteExpired 만료된 대기 엔트리 삭제
func (r *WaitlistRepository) DeleteExpired(olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM toilet_smash_waitlist
		WHERE created_at < NOW() - $1::interval
	`

	result, err := r.db.Exec(query, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}
