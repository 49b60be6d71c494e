package models

import (
	"fmt"
	"time"
)

// Person is the only record managed through the chat bot
type Person struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"index:idx_person_name_age"`
	// Age is kept as entered in the chat, never parsed
	Age string `json:"age" gorm:"index:idx_person_name_age"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name used by the existing database
func (Person) TableName() string {
	return "person"
}

// String renders the person the way it is shown in numbered lists
func (p Person) String() string {
	return fmt.Sprintf("%s, %s", p.Name, p.Age)
}

// PersonImport is one document of a bulk import file
type PersonImport struct {
	Name string `json:"name" yaml:"name"`
	Age  string `json:"age" yaml:"age"`
}

// ToPerson converts an import document into a new Person
func (pi PersonImport) ToPerson() *Person {
	return &Person{
		Name: pi.Name,
		Age:  pi.Age,
	}
}
