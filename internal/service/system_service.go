package service

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/database"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	features map[string]bool
}

// NewSystemService creates a new SystemService. features lists the optional
// capabilities reported by CheckVersion.
func NewSystemService(db *sql.DB, features map[string]bool) *SystemService {
	return &SystemService{
		db:       db,
		features: features,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// CheckVersion returns the application version, the schema version and the
// enabled features.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}

	features := make(map[string]bool, len(s.features))
	for k, v := range s.features {
		features[k] = v
	}
	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  strconv.FormatInt(dbVersion, 10),
		Features:   features,
	}, nil
}
