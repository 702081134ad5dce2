package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dbContextKey = "db"

// DatabaseMiddleware stores the gorm handle in the request context so
// handlers never touch a package-level connection. Tests swap in an
// in-memory database through the same path.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the gorm handle placed by DatabaseMiddleware.
func GetDB(c *gin.Context) (*gorm.DB, error) {
	value, exists := c.Get(dbContextKey)
	if !exists {
		return nil, fmt.Errorf("database handle missing from request context")
	}
	db, ok := value.(*gorm.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database handle has unexpected type")
	}
	return db, nil
}
