package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/types"
	"github.com/rizzlab/rizzlab-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	log.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "rizzlab", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Persona{},
		&types.Round{},
		&types.RoundMessage{},
		&types.PlayerProgress{},
		&types.Reward{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_round_persona_id",
			ddl: `ALTER TABLE "round"
				ADD CONSTRAINT "fk_round_persona_id"
				FOREIGN KEY ("persona_id") REFERENCES "persona"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_round_message_round_id",
			ddl: `ALTER TABLE "round_message"
				ADD CONSTRAINT "fk_round_message_round_id"
				FOREIGN KEY ("round_id") REFERENCES "round"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_reward_round_id",
			ddl: `ALTER TABLE "reward"
				ADD CONSTRAINT "fk_reward_round_id"
				FOREIGN KEY ("round_id") REFERENCES "round"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, c := range constraints {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
