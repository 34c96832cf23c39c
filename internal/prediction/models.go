// Package prediction estimates future credit issuance for a project, using an
// AI oracle when one is configured and a fixed heuristic otherwise.
package prediction

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"

	// HorizonYears is the projection window of every prediction.
	HorizonYears = 3
)

// Input describes the credit batch a prediction is made for
type Input struct {
	CreditID    string  `json:"credit_id,omitempty"`
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Quantity    float64 `json:"quantity"`
	Methodology string  `json:"methodology,omitempty"`
	VintageYear int     `json:"vintage_year,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// Prediction is the projected issuance for a project
type Prediction struct {
	ProjectID           string   `json:"project_id"`
	CurrentCredits      float64  `json:"current_credits"`
	PredictedAdditional float64  `json:"predicted_additional"`
	PredictedTotal      float64  `json:"predicted_total"`
	HorizonYears        int      `json:"horizon_years"`
	Confidence          int      `json:"confidence"`
	Factors             []string `json:"factors"`
	Risks               []string `json:"risks"`
	Reasoning           string   `json:"reasoning"`
	Source              string   `json:"source"`
}
