package applyprogram

type Input struct {
	ProgramID string `json:"programId" binding:"required,uuid"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}
