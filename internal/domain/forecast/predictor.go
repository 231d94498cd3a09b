package forecast

import (
	"math"
	"time"

	"github.com/rollout/backend/internal/domain/rollout"
)

// Confidence grades how much history backs a prediction.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// StageProgress is the per-stage state of a prediction.
type StageProgress string

const (
	StageTodo       StageProgress = "TODO"
	StageInProgress StageProgress = "IN_PROGRESS"
	StageDone       StageProgress = "DONE"
)

const (
	// Idle days beyond this threshold start penalizing the estimate.
	idlePenaltyThreshold = 5
	idlePenaltyFactor    = 0.5

	// Floors for a stage that has started but not finished. Near the end of
	// a stage the statistical remainder approaches zero, but wrap-up work
	// never actually does.
	minRemainingP50 = 1.0
	minRemainingP75 = 2.5
)

// StageForecast breaks a prediction down into one line per expected stage.
type StageForecast struct {
	Stage        string        `json:"stage"`
	Progress     StageProgress `json:"progress"`
	RemainingP50 float64       `json:"remaining_p50"`
	RemainingP75 float64       `json:"remaining_p75"`
	IdlePenalty  float64       `json:"idle_penalty"`
	Samples      int           `json:"samples"`
}

// Prediction is the projected completion of a single project.
type Prediction struct {
	Concluded        bool           `json:"concluded"`
	RemainingDaysP50 float64        `json:"remaining_days_p50"`
	RemainingDaysP75 float64        `json:"remaining_days_p75"`
	PredictedDate    time.Time      `json:"predicted_date"`
	PredictedDateP75 time.Time      `json:"predicted_date_p75"`
	ContractDueAt    *time.Time     `json:"contract_due_at,omitempty"`
	LatenessDays     int            `json:"lateness_days"`
	Confidence       Confidence     `json:"confidence"`
	Stages           []StageForecast `json:"stages"`
}

// Predictor projects completion dates from stage statistics. The stage list
// is the expected pipeline in order; projects missing a stage entirely get
// the full statistical estimate for it.
type Predictor struct {
	stages     []string
	stats      map[string]StageStats
	minSamples int
}

func NewPredictor(stages []string, stats map[string]StageStats, minSamples int) *Predictor {
	if minSamples <= 0 {
		minSamples = 10
	}
	return &Predictor{stages: stages, stats: stats, minSamples: minSamples}
}

// Predict estimates when the project finishes. Completed projects report
// zero remaining work and zero lateness.
func (p *Predictor) Predict(project *rollout.Project, steps []rollout.TaskStep, now time.Time) Prediction {
	if project.IsCompleted() {
		finished := now
		if at := project.EffectiveFinishedAt(); at != nil {
			finished = *at
		}
		return Prediction{
			Concluded:        true,
			PredictedDate:    finished,
			PredictedDateP75: finished,
			ContractDueAt:    project.ContractDueAt(),
			Confidence:       ConfidenceHigh,
		}
	}

	byStage := make(map[string]*rollout.TaskStep, len(steps))
	for i := range steps {
		s := &steps[i]
		if _, seen := byStage[s.Stage]; !seen {
			byStage[s.Stage] = s
		}
	}

	var (
		totalP50, totalP75 float64
		thinStages         int
		forecasts          = make([]StageForecast, 0, len(p.stages))
	)
	for _, stage := range p.stages {
		st, ok := p.stats[stage]
		if !ok {
			st = StageStats{Mean: fallbackStageDays, P50: fallbackStageDays, P75: fallbackStageDays * fallbackP75Stretch}
		}
		if st.Count < p.minSamples {
			thinStages++
		}

		step := byStage[stage]
		sf := p.stageRemaining(stage, st, step, now)
		totalP50 += sf.RemainingP50
		totalP75 += sf.RemainingP75
		forecasts = append(forecasts, sf)
	}

	pred := Prediction{
		RemainingDaysP50: round1(totalP50),
		RemainingDaysP75: round1(totalP75),
		PredictedDate:    now.Add(time.Duration(totalP50 * 24 * float64(time.Hour))),
		PredictedDateP75: now.Add(time.Duration(totalP75 * 24 * float64(time.Hour))),
		ContractDueAt:    project.ContractDueAt(),
		Confidence:       p.confidence(thinStages),
		Stages:           forecasts,
	}
	if pred.ContractDueAt != nil {
		late := pred.PredictedDate.Sub(*pred.ContractDueAt).Hours() / 24
		if late > 0 {
			pred.LatenessDays = int(math.Ceil(late))
		}
	}
	return pred
}

func (p *Predictor) stageRemaining(stage string, st StageStats, step *rollout.TaskStep, now time.Time) StageForecast {
	sf := StageForecast{Stage: stage, Progress: StageTodo, Samples: st.Count}

	if step != nil && step.IsClosed() {
		sf.Progress = StageDone
		return sf
	}

	remainingP50 := st.P50
	remainingP75 := st.P75
	if step != nil {
		if start := step.EffectiveStartAt(); start != nil && !start.After(now) {
			sf.Progress = StageInProgress
			elapsed := now.Sub(*start).Hours() / 24
			remainingP50 = math.Max(0, remainingP50-elapsed)
			remainingP75 = math.Max(0, remainingP75-elapsed)
			if remainingP50 < minRemainingP50 {
				remainingP50 = minRemainingP50
			}
			if remainingP75 < minRemainingP75 {
				remainingP75 = minRemainingP75
			}
		}
		if step.IdleDays > idlePenaltyThreshold {
			sf.IdlePenalty = round1(float64(step.IdleDays-idlePenaltyThreshold) * idlePenaltyFactor)
			remainingP50 += sf.IdlePenalty
			remainingP75 += sf.IdlePenalty
		}
	}

	sf.RemainingP50 = round1(remainingP50)
	sf.RemainingP75 = round1(remainingP75)
	return sf
}

func (p *Predictor) confidence(thinStages int) Confidence {
	switch {
	case len(p.stages) == 0:
		return ConfidenceLow
	case thinStages > len(p.stages)/2:
		return ConfidenceLow
	case thinStages > 0:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
