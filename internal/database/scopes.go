package database

import (
	"gorm.io/gorm"
)

// Take limits a query to n rows. Non-positive n leaves the query unbounded.
func Take(n int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Limit(n)
	}
}

// OwnedBy restricts a query on a user-owned table to one owner.
func OwnedBy(table, userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".user_id = ?", userID)
	}
}
