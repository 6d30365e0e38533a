package validateauthenticity

type Input struct {
	DocumentData map[string]interface{} `json:"documentData" binding:"required"`
}

// Output reports the model's verdict. Confidence carries the model's full
// explanation rather than a score.
type Output struct {
	IsAuthentic bool   `json:"isAuthentic"`
	Confidence  string `json:"confidence"`
}
