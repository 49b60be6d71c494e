package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Ananth-NQI/personbot/internal/config"
	"github.com/Ananth-NQI/personbot/internal/models"
	"github.com/Ananth-NQI/personbot/internal/storage"
)

// socketDir is where Cloud Run mounts Cloud SQL sockets
const socketDir = "/cloudsql"

// DSN builds the PostgreSQL connection string
func DSN(cfg config.DBConfig) string {
	if cfg.InstanceConnectionName != "" {
		// Production: Connect via Unix socket
		return fmt.Sprintf("host=%s/%s user=%s password=%s dbname=%s sslmode=disable",
			socketDir, cfg.InstanceConnectionName, cfg.User, cfg.Pass, cfg.Name)
	}
	// Local development: Connect via TCP
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.Host, cfg.User, cfg.Pass, cfg.Name, cfg.Port)
}

// Connect opens the PostgreSQL connection and migrates the person table
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.InstanceConnectionName != "" {
		log.Printf("Connecting to Cloud SQL via socket: %s", cfg.InstanceConnectionName)
	} else {
		log.Printf("Connecting to PostgreSQL at %s:%d", cfg.Host, cfg.Port)
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Database connected successfully!")

	if err := db.AutoMigrate(&models.Person{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migrations completed!")

	return db, nil
}

// OpenStore builds the Store selected by STORE_DRIVER
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("⚠️  Using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), nil
	case config.DriverSQLite:
		log.Printf("📦 Opening SQLite database at %s", cfg.SQLitePath)
		return storage.NewSQLiteStore(cfg.SQLitePath)
	default:
		log.Println("📦 Connecting to PostgreSQL database...")
		db, err := Connect(cfg.DB)
		if err != nil {
			return nil, err
		}
		return storage.NewDatabaseStore(db), nil
	}
}

// StorageType describes the active backend for the health endpoint
func StorageType(driver string) string {
	switch driver {
	case config.DriverMemory:
		return "In-Memory (Testing)"
	case config.DriverSQLite:
		return "SQLite"
	default:
		return "PostgreSQL Database"
	}
}
