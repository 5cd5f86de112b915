package usecase

import (
	"errors"

	appdomain "jobtrack-backend/internal/application/domain"
	appdto "jobtrack-backend/internal/application/dto"
	"jobtrack-backend/internal/application/repository"
)

var ErrNotFound = errors.New("application not found")

// ApplicationUsecase covers listing, stats and manual edits of tracked
// applications.
type ApplicationUsecase interface {
	List(userID string, q *appdto.ListQuery) (*appdto.PaginatedApplications, error)
	Get(userID, id string) (*appdomain.Application, error)
	Update(userID, id string, req *appdto.UpdateRequest) (*appdomain.Application, error)
	Delete(userID, id string) error
	Stats(userID string) (*appdto.Stats, error)
	Companies() ([]appdomain.Company, error)
	SaveCompany(company *appdomain.Company) error
}

type applicationUsecase struct {
	appRepo     repository.ApplicationRepository
	companyRepo repository.CompanyRepository
}

func NewApplicationUsecase(appRepo repository.ApplicationRepository, companyRepo repository.CompanyRepository) ApplicationUsecase {
	return &applicationUsecase{
		appRepo:     appRepo,
		companyRepo: companyRepo,
	}
}

func (u *applicationUsecase) List(userID string, q *appdto.ListQuery) (*appdto.PaginatedApplications, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	apps, total, err := u.appRepo.List(userID, repository.ListFilter{
		Category: q.Status,
		Offset:   q.Offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	return &appdto.PaginatedApplications{
		Items:  apps,
		Total:  total,
		Offset: q.Offset,
		Limit:  limit,
	}, nil
}

func (u *applicationUsecase) Get(userID, id string) (*appdomain.Application, error) {
	app, err := u.appRepo.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

func (u *applicationUsecase) Update(userID, id string, req *appdto.UpdateRequest) (*appdomain.Application, error) {
	app, err := u.Get(userID, id)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		app.CompanyName = *req.CompanyName
	}
	if req.JobTitle != nil {
		app.JobTitle = *req.JobTitle
	}
	if req.NeedsReview != nil {
		app.NeedsReview = *req.NeedsReview
	}
	if req.ApplicationStage != nil {
		app.ApplicationStage = *req.ApplicationStage
		app.Status = appdomain.StatusFromStage(app.ApplicationStage)
	}
	// An explicit status wins over the stage-derived one.
	if req.Status != nil {
		app.Status = *req.Status
	}

	if err := u.appRepo.Save(app); err != nil {
		return nil, err
	}
	return app, nil
}

func (u *applicationUsecase) Delete(userID, id string) error {
	app, err := u.Get(userID, id)
	if err != nil {
		return err
	}
	return u.appRepo.Delete(userID, app.ID)
}

func (u *applicationUsecase) Stats(userID string) (*appdto.Stats, error) {
	total, err := u.appRepo.Count(userID)
	if err != nil {
		return nil, err
	}
	byCategory, err := u.appRepo.CountByCategory(userID)
	if err != nil {
		return nil, err
	}

	rejections := byCategory[appdomain.CategoryRejection]
	interviews := byCategory[appdomain.CategoryInterviewRequest]
	assessments := byCategory[appdomain.CategoryAssessment]
	offers := byCategory[appdomain.CategoryOffer]

	pending := total - (rejections + interviews + assessments + offers)
	if pending < 0 {
		pending = 0
	}

	return &appdto.Stats{
		TotalApplications: total,
		Rejections:        rejections,
		Interviews:        interviews,
		Assessments:       assessments,
		Pending:           pending,
		Offers:            offers,
	}, nil
}

func (u *applicationUsecase) Companies() ([]appdomain.Company, error) {
	return u.companyRepo.List()
}

func (u *applicationUsecase) SaveCompany(company *appdomain.Company) error {
	return u.companyRepo.Save(company)
}
