package models

// Location 배틀 로케이션 (고정 스탯 블록, 로드 후 불변)
type Location struct {
	ID               int64   `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	Latitude         float64 `db:"latitude" json:"latitude"`
	Longitude        float64 `db:"longitude" json:"longitude"`
	AttackPower      float64 `db:"attack_power" json:"attackPower"`
	DefensePower     float64 `db:"defense_power" json:"defensePower"`
	CleanlinessLevel float64 `db:"cleanliness_level" json:"cleanlinessLevel"`
	LocationLevel    float64 `db:"location_level" json:"locationLevel"`
	CrowdingLevel    float64 `db:"crowding_level" json:"crowdingLevel"`
	ToiletCountLevel float64 `db:"toilet_count_level" json:"toiletCountLevel"`
	UniquenessLevel  float64 `db:"uniqueness_level" json:"uniquenessLevel"`
}
