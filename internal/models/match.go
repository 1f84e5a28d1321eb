package models

import "time"

// BattleResult 배틀 결과 (win 또는 lose, 무승부 없음)
type BattleResult string

const (
	ResultWin  BattleResult = "win"
	ResultLose BattleResult = "lose"
)

// Match 매칭 완료 레코드 (생성 후 불변)
type Match struct {
	ID                string       `db:"id" json:"id"`
	Player1ID         string       `db:"player1_id" json:"player1Id"`
	Player2ID         string       `db:"player2_id" json:"player2Id"`
	Player1LocationID int64        `db:"player1_location_id" json:"player1LocationId"`
	Player2LocationID int64        `db:"player2_location_id" json:"player2LocationId"`
	Player1Result     BattleResult `db:"player1_result" json:"player1Result"`
	Player2Result     BattleResult `db:"player2_result" json:"player2Result"`
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
}

// ResultFor 해당 유저의 결과 반환 (매치에 없으면 빈 값)
func (m *Match) ResultFor(userID string) BattleResult {
	switch userID {
	case m.Player1ID:
		return m.Player1Result
	case m.Player2ID:
		return m.Player2Result
	}
	return ""
}

// Involves 유저가 이 매치의 플레이어인지 확인
func (m *Match) Involves(userID string) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}
