package service

import "github.com/shunnagahara/van-toilet-smash/internal/models"

// fallbackLocations DB를 읽을 수 없을 때 사용하는 내장 로케이션.
// 기본 데이터와 동일한 스탯 스케일을 유지해야 가중치가 그대로 적용된다.
var fallbackLocations = []models.Location{
	{
		ID:               1,
		Name:             "Gastown Public Toilet",
		Latitude:         49.2827,
		Longitude:        -123.1067,
		AttackPower:      80,
		DefensePower:     70,
		CleanlinessLevel: 85,
		LocationLevel:    75,
		CrowdingLevel:    60,
		ToiletCountLevel: 70,
		UniquenessLevel:  80,
	},
	{
		ID:               2,
		Name:             "Yaletown Community Center",
		Latitude:         49.2754,
		Longitude:        -123.1216,
		AttackPower:      80,
		DefensePower:     70,
		CleanlinessLevel: 85,
		LocationLevel:    75,
		CrowdingLevel:    60,
		ToiletCountLevel: 70,
		UniquenessLevel:  80,
	},
	{
		ID:               3,
		Name:             "Coal Harbour Rest Area",
		Latitude:         49.2897,
		Longitude:        -123.1226,
		AttackPower:      80,
		DefensePower:     70,
		CleanlinessLevel: 85,
		LocationLevel:    75,
		CrowdingLevel:    60,
		ToiletCountLevel: 70,
		UniquenessLevel:  80,
	},
}

// FallbackLocations 내장 폴백 로케이션 복사본 반환
func FallbackLocations() []models.Location {
	out := make([]models.Location, len(fallbackLocations))
	copy(out, fallbackLocations)
	return out
}
