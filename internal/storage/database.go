package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Ananth-NQI/personbot/internal/models"
)

// DatabaseStore implements Store on top of gorm (PostgreSQL in production)
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open gorm connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) CreatePerson(person *models.Person) (*models.Person, error) {
	if err := d.db.Create(person).Error; err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return person, nil
}

func (d *DatabaseStore) GetPerson(id uint) (*models.Person, error) {
	var person models.Person
	err := d.db.First(&person, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %d: %w", id, err)
	}
	return &person, nil
}

func (d *DatabaseStore) GetAllPersons() ([]*models.Person, error) {
	var persons []*models.Person
	if err := d.db.Order("id").Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	return persons, nil
}

// UpdatePerson overwrites name and age inside one transaction so the
// lookup and the write see the same row
func (d *DatabaseStore) UpdatePerson(id uint, name, age string) (*models.Person, error) {
	var person models.Person
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&person, id).Error; err != nil {
			return err
		}
		person.Name = name
		person.Age = age
		return tx.Save(&person).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update person %d: %w", id, err)
	}
	return &person, nil
}

func (d *DatabaseStore) DeletePersons(name, age string) (int64, error) {
	result := d.db.Where("name = ? AND age = ?", name, age).Delete(&models.Person{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete persons: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (d *DatabaseStore) CountPersons() (int64, error) {
	var count int64
	if err := d.db.Model(&models.Person{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return count, nil
}

func (d *DatabaseStore) ImportPersons(persons []*models.Person) (int, error) {
	if len(persons) == 0 {
		return 0, nil
	}
	if err := d.db.CreateInBatches(persons, 100).Error; err != nil {
		return 0, fmt.Errorf("failed to import persons: %w", err)
	}
	return len(persons), nil
}

func (d *DatabaseStore) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
