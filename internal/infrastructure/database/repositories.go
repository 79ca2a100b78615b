package database

import (
	"github.com/kauecavalcante/chef-de-geladeira/internal/adapter/repository"
	domainRepo "github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         domainRepo.UserRepository
	Recipe       domainRepo.RecipeRepository
	PaymentEvent domainRepo.PaymentEventRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		User:         repository.NewUserRepository(db, logger),
		Recipe:       repository.NewRecipeRepository(db, logger),
		PaymentEvent: repository.NewPaymentEventRepository(db, logger),
	}
}
