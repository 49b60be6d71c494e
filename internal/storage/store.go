package storage

import (
	"errors"

	"github.com/Ananth-NQI/personbot/internal/models"
)

// ErrPersonNotFound is returned when no person has the requested ID
var ErrPersonNotFound = errors.New("person not found")

// Store defines the interface for storage operations
type Store interface {
	// Person operations
	CreatePerson(person *models.Person) (*models.Person, error)
	GetPerson(id uint) (*models.Person, error)
	// GetAllPersons returns every person ordered by ID ascending
	GetAllPersons() ([]*models.Person, error)
	UpdatePerson(id uint, name, age string) (*models.Person, error)
	// DeletePersons removes every person whose name and age both match and
	// reports how many were removed
	DeletePersons(name, age string) (int64, error)
	CountPersons() (int64, error)

	// Bulk operations (import/seed utilities)
	ImportPersons(persons []*models.Person) (int, error)

	Close() error
}
