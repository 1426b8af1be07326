package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Drivers without translated errors surface unique violations as bare
// strings. postgres 23505, mysql 1062, sqlite 2067.
var duplicateKeyFragments = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation,
// regardless of the underlying driver.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, fragment := range duplicateKeyFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
