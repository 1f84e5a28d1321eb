package repository

import (
	"database/sql"
	"fmt"

	"github.com/shunnagahara/van-toilet-smash/internal/models"
	"github.com/shunnagahara/van-toilet-smash/pkg/database"
)

type LocationRepository struct {
	db *database.DB
}

func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// FindAll 전체 로케이션 조회
func (r *LocationRepository) FindAll() ([]models.Location, error) {
	query := `
		SELECT id, name, latitude, longitude,
		       attack_power, defense_power, cleanliness_level, location_level,
		       crowding_level, toilet_count_level, uniqueness_level
		FROM locations
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(
			&loc.ID,
			&loc.Name,
			&loc.Latitude,
			&loc.Longitude,
			&loc.AttackPower,
			&loc.DefensePower,
			&loc.CleanlinessLevel,
			&loc.LocationLevel,
			&loc.CrowdingLevel,
			&loc.ToiletCountLevel,
			&loc.UniquenessLevel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}

	return locations, nil
}

// FindByID ID로 로케이션 조회
func (r *LocationRepository) FindByID(id int64) (*models.Location, error) {
	query := `
		SELECT id, name, latitude, longitude,
		       attack_power, defense_power, cleanliness_level, location_level,
		       crowding_level, toilet_count_level, uniqueness_level
		FROM locations
		WHERE id = $1
	`

	loc := &models.Location{}
	err := r.db.QueryRow(query, id).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Latitude,
		&loc.Longitude,
		&loc.AttackPower,
		&loc.DefensePower,
		&loc.CleanlinessLevel,
		&loc.LocationLevel,
		&loc.CrowdingLevel,
		&loc.ToiletCountLevel,
		&loc.UniquenessLevel,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find location: %w", err)
	}

	return loc, nil
}
