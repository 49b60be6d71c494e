package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/personbot/internal/models"
)

// MemoryStore holds all persons in memory (testing and demos)
type MemoryStore struct {
	persons map[uint]*models.Person

	// Mutex for thread safety
	personMu sync.RWMutex

	// Counter for ID generation
	personCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		persons: make(map[uint]*models.Person),
	}
}

// CreatePerson assigns the next ID and stores a copy of the person
func (m *MemoryStore) CreatePerson(person *models.Person) (*models.Person, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	return m.createLocked(person), nil
}

func (m *MemoryStore) createLocked(person *models.Person) *models.Person {
	m.personCounter++
	now := time.Now()

	stored := &models.Person{
		ID:        m.personCounter,
		Name:      person.Name,
		Age:       person.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.persons[stored.ID] = stored

	person.ID = stored.ID
	person.CreatedAt = now
	person.UpdatedAt = now

	copied := *stored
	return &copied
}

func (m *MemoryStore) GetPerson(id uint) (*models.Person, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	person, exists := m.persons[id]
	if !exists {
		return nil, ErrPersonNotFound
	}
	copied := *person
	return &copied, nil
}

func (m *MemoryStore) GetAllPersons() ([]*models.Person, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	persons := make([]*models.Person, 0, len(m.persons))
	for _, person := range m.persons {
		copied := *person
		persons = append(persons, &copied)
	}
	sort.Slice(persons, func(i, j int) bool {
		return persons[i].ID < persons[j].ID
	})
	return persons, nil
}

func (m *MemoryStore) UpdatePerson(id uint, name, age string) (*models.Person, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	person, exists := m.persons[id]
	if !exists {
		return nil, ErrPersonNotFound
	}
	person.Name = name
	person.Age = age
	person.UpdatedAt = time.Now()

	copied := *person
	return &copied, nil
}

func (m *MemoryStore) DeletePersons(name, age string) (int64, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	var deleted int64
	for id, person := range m.persons {
		if person.Name == name && person.Age == age {
			delete(m.persons, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) CountPersons() (int64, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	return int64(len(m.persons)), nil
}

func (m *MemoryStore) ImportPersons(persons []*models.Person) (int, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	for _, person := range persons {
		m.createLocked(person)
	}
	return len(persons), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
