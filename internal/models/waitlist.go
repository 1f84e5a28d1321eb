package models

import "time"

// WaitlistEntry 대기열 엔트리 (유저당 최대 1개)
type WaitlistEntry struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	LocationID int64     `db:"location_id" json:"locationId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
