package models

import "time"

// Student identifies a reader. Password is only ever sent in login requests.
type Student struct {
	Number         string `json:"number"`
	Name           string `json:"name"`
	Password       string `json:"password,omitempty"`
	TotalPageCount *int   `json:"totalPageCount,omitempty"`
}

// Identity returns the student stripped of the password and derived fields.
func (s Student) Identity() Student {
	return Student{Number: s.Number, Name: s.Name}
}

// StudentRecord is the persisted row behind a Student on the script backend.
type StudentRecord struct {
	Number       string    `db:"number"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ToStudent converts the record into the public shape.
func (r StudentRecord) ToStudent() Student {
	return Student{Number: r.Number, Name: r.Name}
}

// StudentTotal is a dashboard row aggregated over all entries of a student.
type StudentTotal struct {
	Number         string `db:"number"`
	Name           string `db:"name"`
	TotalPageCount int    `db:"total_page_count"`
}

// LoginCredentials is the payload collected by the login form.
type LoginCredentials struct {
	Number   string `json:"number" form:"number" binding:"required" validate:"required"`
	Name     string `json:"name" form:"name" binding:"required" validate:"required"`
	Password string `json:"password" form:"password" binding:"required" validate:"required"`
}
