package usecase

import (
	"math"
	"sort"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	appdto "jobtrack-backend/internal/application/dto"
	"jobtrack-backend/internal/application/repository"
)

// respondedStages are stages implying the company reacted to the
// application in some way.
var respondedStages = []string{
	appdomain.StageScreening,
	appdomain.StageInterview,
	appdomain.StageOffer,
	appdomain.StageRejected,
}

// AnalyticsUsecase computes funnel, response-rate, time-to-event and
// success-prediction views over a user's applications.
type AnalyticsUsecase interface {
	Funnel(userID string) (*appdto.FunnelResponse, error)
	ResponseRate(userID, groupBy string) (*appdto.ResponseRateResponse, error)
	TimeToEvent(userID, event string) (*appdto.TimeToEventResponse, error)
	Prediction(userID string, limit int) (*appdto.PredictionResponse, error)
}

type analyticsUsecase struct {
	appRepo repository.ApplicationRepository
}

func NewAnalyticsUsecase(appRepo repository.ApplicationRepository) AnalyticsUsecase {
	return &analyticsUsecase{appRepo: appRepo}
}

func pct(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(1000.0*float64(count)/float64(total)) / 10
}

func (u *analyticsUsecase) Funnel(userID string) (*appdto.FunnelResponse, error) {
	total, err := u.appRepo.Count(userID)
	if err != nil {
		return nil, err
	}
	interviews, err := u.appRepo.CountByStages(userID, []string{appdomain.StageInterview, appdomain.StageScreening})
	if err != nil {
		return nil, err
	}
	offers, err := u.appRepo.CountByStages(userID, []string{appdomain.StageOffer})
	if err != nil {
		return nil, err
	}
	rejections, err := u.appRepo.CountByStages(userID, []string{appdomain.StageRejected})
	if err != nil {
		return nil, err
	}

	appliedPct := 0.0
	if total > 0 {
		appliedPct = 100.0
	}
	return &appdto.FunnelResponse{
		Total: total,
		Funnel: []appdto.FunnelStage{
			{Stage: "Applied", Count: total, Pct: appliedPct},
			{Stage: "Interview / screening", Count: interviews, Pct: pct(interviews, total)},
			{Stage: "Offer", Count: offers, Pct: pct(offers, total)},
			{Stage: "Rejection", Count: rejections, Pct: pct(rejections, total)},
		},
	}, nil
}

func (u *analyticsUsecase) ResponseRate(userID, groupBy string) (*appdto.ResponseRateResponse, error) {
	if groupBy != "industry" {
		groupBy = "company"
	}

	applied, err := u.appRepo.GroupCount(userID, groupBy, nil)
	if err != nil {
		return nil, err
	}
	responded, err := u.appRepo.GroupCount(userID, groupBy, respondedStages)
	if err != nil {
		return nil, err
	}

	respondedByName := make(map[string]int64, len(responded))
	for _, row := range responded {
		respondedByName[row.Name] = row.Count
	}

	items := make([]appdto.ResponseRateItem, 0, len(applied))
	for _, row := range applied {
		rate := 0.0
		if row.Count > 0 {
			rate = math.Round(100.0*float64(respondedByName[row.Name])/float64(row.Count)) / 100
		}
		items = append(items, appdto.ResponseRateItem{
			Name:      row.Name,
			Applied:   row.Count,
			Responded: respondedByName[row.Name],
			Rate:      rate,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Applied > items[j].Applied })
	if groupBy == "company" && len(items) > 50 {
		items = items[:50]
	}

	return &appdto.ResponseRateResponse{GroupBy: groupBy, Items: items}, nil
}

func (u *analyticsUsecase) TimeToEvent(userID, event string) (*appdto.TimeToEventResponse, error) {
	if event != "interview" {
		event = "rejection"
	}

	pairs, err := u.appRepo.EventPairs(userID, event)
	if err != nil {
		return nil, err
	}

	var days []float64
	for _, p := range pairs {
		if p.Received == nil || p.Event == nil {
			continue
		}
		days = append(days, p.Event.Sub(*p.Received).Hours()/24)
	}

	if len(days) == 0 {
		return &appdto.TimeToEventResponse{Event: event, SampleSize: 0}, nil
	}

	sort.Float64s(days)
	n := len(days)
	var median float64
	if n%2 == 1 {
		median = days[n/2]
	} else {
		median = (days[n/2-1] + days[n/2]) / 2
	}

	sum := 0.0
	for _, d := range days {
		sum += d
	}

	median = math.Round(median*10) / 10
	avg := math.Round(sum/float64(n)*10) / 10
	return &appdto.TimeToEventResponse{
		Event:      event,
		MedianDays: &median,
		AvgDays:    &avg,
		SampleSize: n,
	}, nil
}

const (
	predictionSample     = 500
	predictionMinSamples = 10
	predictionEpochs     = 500
	predictionLearnRate  = 0.1
)

// Prediction fits a small logistic regression over the user's recent
// applications (features: days since received, category index; target:
// reached interview/offer) and returns per-application success
// probabilities. With too little data it returns an empty item list.
func (u *analyticsUsecase) Prediction(userID string, limit int) (*appdto.PredictionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	apps, err := u.appRepo.ListRecent(userID, predictionSample)
	if err != nil {
		return nil, err
	}
	if len(apps) < predictionMinSamples {
		return &appdto.PredictionResponse{Items: []appdto.PredictionItem{}, Limit: limit}, nil
	}

	categoryIndex := make(map[string]int)
	now := time.Now()
	features := make([][2]float64, len(apps))
	labels := make([]float64, len(apps))
	positives := 0
	for i, app := range apps {
		category := app.Category
		if category == "" {
			category = appdomain.CategoryOther
		}
		if _, ok := categoryIndex[category]; !ok {
			categoryIndex[category] = len(categoryIndex)
		}

		days := 0.0
		if app.ReceivedDate != nil {
			days = now.Sub(*app.ReceivedDate).Hours() / 24
		}
		features[i] = [2]float64{days, float64(categoryIndex[category])}

		switch app.ApplicationStage {
		case appdomain.StageOffer, appdomain.StageInterview, appdomain.StageScreening:
			labels[i] = 1
			positives++
		}
	}
	if positives < 2 {
		return &appdto.PredictionResponse{Items: []appdto.PredictionItem{}, Limit: limit}, nil
	}

	weights, bias := fitLogistic(features, labels)

	count := limit
	if count > len(apps) {
		count = len(apps)
	}
	items := make([]appdto.PredictionItem, 0, count)
	for i := 0; i < count; i++ {
		app := apps[i]
		p := sigmoid(weights[0]*features[i][0] + weights[1]*features[i][1] + bias)

		company := app.CompanyName
		if company == "" {
			company = "Unknown"
		}
		items = append(items, appdto.PredictionItem{
			ApplicationID: app.ID,
			CompanyName:   company,
			Probability:   math.Round(p*10000) / 10000,
			Features: map[string]float64{
				"days_since_received": math.Round(features[i][0]*10) / 10,
				"category_enc":        features[i][1],
			},
		})
	}
	return &appdto.PredictionResponse{Items: items, Limit: limit}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// fitLogistic trains a 2-feature logistic regression by batch gradient
// descent on standardized inputs, returning weights on the original scale.
func fitLogistic(features [][2]float64, labels []float64) ([2]float64, float64) {
	n := float64(len(features))

	// Standardize so one learning rate works for both features.
	var mean, std [2]float64
	for _, f := range features {
		mean[0] += f[0]
		mean[1] += f[1]
	}
	mean[0] /= n
	mean[1] /= n
	for _, f := range features {
		std[0] += (f[0] - mean[0]) * (f[0] - mean[0])
		std[1] += (f[1] - mean[1]) * (f[1] - mean[1])
	}
	std[0] = math.Sqrt(std[0] / n)
	std[1] = math.Sqrt(std[1] / n)
	for i := range std {
		if std[i] == 0 {
			std[i] = 1
		}
	}

	scaled := make([][2]float64, len(features))
	for i, f := range features {
		scaled[i] = [2]float64{(f[0] - mean[0]) / std[0], (f[1] - mean[1]) / std[1]}
	}

	var w [2]float64
	var b float64
	for epoch := 0; epoch < predictionEpochs; epoch++ {
		var gw [2]float64
		var gb float64
		for i, f := range scaled {
			p := sigmoid(w[0]*f[0] + w[1]*f[1] + b)
			diff := p - labels[i]
			gw[0] += diff * f[0]
			gw[1] += diff * f[1]
			gb += diff
		}
		w[0] -= predictionLearnRate * gw[0] / n
		w[1] -= predictionLearnRate * gw[1] / n
		b -= predictionLearnRate * gb / n
	}

	// Undo the standardization.
	orig := [2]float64{w[0] / std[0], w[1] / std[1]}
	origBias := b - orig[0]*mean[0] - orig[1]*mean[1]
	return orig, origBias
}
