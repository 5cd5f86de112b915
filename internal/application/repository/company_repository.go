package repository

import (
	"time"

	appdomain "jobtrack-backend/internal/application/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"jobtrack-backend/pkg/ai"
)

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

// Canonicalize strips legal suffixes and resolves the result against the
// companies table: an exact canonical match or an alias match returns the
// canonical name, otherwise the normalized input is returned unchanged.
func (r *companyRepository) Canonicalize(name string) (string, error) {
	normalized := ai.NormalizeCompany(name)
	if normalized == "Unknown" {
		return normalized, nil
	}

	var company appdomain.Company
	err := r.db.Where("canonical_name = ?", normalized).First(&company).Error
	if err == nil {
		return company.CanonicalName, nil
	}
	if err != gorm.ErrRecordNotFound {
		return normalized, err
	}

	var withAliases []appdomain.Company
	if err := r.db.Where("aliases IS NOT NULL").Find(&withAliases).Error; err != nil {
		return normalized, err
	}
	for _, c := range withAliases {
		for _, alias := range c.Aliases {
			if alias == normalized || alias == name {
				return c.CanonicalName, nil
			}
		}
	}
	return normalized, nil
}

func (r *companyRepository) List() ([]appdomain.Company, error) {
	var companies []appdomain.Company
	err := r.db.Order("canonical_name").Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Save(company *appdomain.Company) error {
	now := time.Now()
	if company.ID == "" {
		company.ID = uuid.New().String()
		company.CreatedAt = now
	}
	company.UpdatedAt = now
	return r.db.Save(company).Error
}
