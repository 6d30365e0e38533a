package managedraft

import (
	"immigration-portal/internal/wizard"
)

type AnswersInput struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

// DocumentStatus is one checklist row as the form shows it.
type DocumentStatus struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Attached bool   `json:"attached"`
	Filename string `json:"filename,omitempty"`
}

// View is the wizard state returned after every draft operation.
type View struct {
	ApplicationID string                 `json:"applicationId"`
	Status        string                 `json:"status"`
	Sections      []wizard.Section       `json:"sections"`
	Index         int                    `json:"index"`
	IsLast        bool                   `json:"isLast"`
	Answers       map[string]interface{} `json:"answers"`
	Documents     []DocumentStatus       `json:"documents"`
	CanSubmit     bool                   `json:"canSubmit"`
}

type ValidateOutput struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func newView(status string, w *wizard.Wizard) *View {
	docs := make([]DocumentStatus, 0, len(w.Checklist()))
	for _, req := range w.Checklist() {
		staged, ok := w.Documents()[req.Key]
		docs = append(docs, DocumentStatus{
			Key:      req.Key,
			Label:    req.Label,
			Attached: ok,
			Filename: staged.Filename,
		})
	}
	return &View{
		ApplicationID: w.Draft().ApplicationID,
		Status:        status,
		Sections:      wizard.Sections,
		Index:         w.Index(),
		IsLast:        w.IsLast(),
		Answers:       w.Answers(),
		Documents:     docs,
		CanSubmit:     w.CanSubmit(),
	}
}
