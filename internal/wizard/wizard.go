package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"immigration-portal/internal/common/validation"
	"immigration-portal/internal/models"
)

var (
	ErrUnknownField    = errors.New("UNKNOWN_FIELD")
	ErrInvalidValue    = errors.New("INVALID_FIELD_VALUE")
	ErrUnknownDocument = errors.New("UNKNOWN_DOCUMENT")
	ErrNotLastSection  = errors.New("NOT_LAST_SECTION")
)

// StagedDocument describes a file attached to a checklist entry but not yet uploaded.
type StagedDocument struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	AttachedAt  time.Time `json:"attachedAt"`
}

// Draft is the persisted wizard state for one application.
type Draft struct {
	ApplicationID string                    `json:"applicationId"`
	Index         int                       `json:"index"`
	Answers       map[string]interface{}    `json:"answers"`
	Documents     map[string]StagedDocument `json:"documents"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

// NewDraft starts an application at the first section with nothing filled in.
func NewDraft(applicationID string) *Draft {
	return &Draft{
		ApplicationID: applicationID,
		Answers:       make(map[string]interface{}),
		Documents:     make(map[string]StagedDocument),
	}
}

// Wizard drives a draft through the form sections and the document checklist.
type Wizard struct {
	draft     *Draft
	checklist []models.DocumentRequirement
}

// New wraps draft, clamping a stored index that no longer fits the sections.
func New(draft *Draft, checklist []models.DocumentRequirement) *Wizard {
	if draft.Answers == nil {
		draft.Answers = make(map[string]interface{})
	}
	if draft.Documents == nil {
		draft.Documents = make(map[string]StagedDocument)
	}
	if draft.Index < 0 {
		draft.Index = 0
	}
	if draft.Index > LastIndex {
		draft.Index = LastIndex
	}
	if len(checklist) == 0 {
		checklist = DefaultChecklist
	}
	return &Wizard{draft: draft, checklist: checklist}
}

func (w *Wizard) Draft() *Draft { return w.draft }
func (w *Wizard) Checklist() []models.DocumentRequirement { return w.checklist }
func (w *Wizard) Index() int { return w.draft.Index }
func (w *Wizard) Section() Section { return Sections[w.draft.Index] }
func (w *Wizard) IsLast() bool { return w.draft.Index == LastIndex }
func (w *Wizard) Answers() map[string]interface{} { return w.draft.Answers }
func (w *Wizard) Documents() map[string]StagedDocument { return w.draft.Documents }

// Advance moves to the next section; it stays put on the last one.
func (w *Wizard) Advance() {
	if w.draft.Index < LastIndex {
		w.draft.Index++
	}
	w.touch()
}

// Retreat moves to the previous section; it stays put on the first one.
func (w *Wizard) Retreat() {
	if w.draft.Index > 0 {
		w.draft.Index--
	}
	w.touch()
}

// SetFields merges patch into the answers. Either every entry is accepted or
// none is, and the error names the offending field.
func (w *Wizard) SetFields(patch map[string]interface{}) error {
	for id := range patch {
		if _, ok := fieldByID(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, id)
		}
	}

	result, err := validation.Validate(answersSchema, patch)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(result.GetErrorMessages(), "; "))
	}

	for id, value := range patch {
		w.draft.Answers[id] = value
	}
	w.touch()
	return nil
}

// SetField records a single answer.
func (w *Wizard) SetField(id string, value interface{}) error {
	return w.SetFields(map[string]interface{}{id: value})
}

// Attach stages doc under a checklist key, replacing any earlier file for it.
func (w *Wizard) Attach(key string, doc StagedDocument) error {
	if !w.inChecklist(key) {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, key)
	}
	w.draft.Documents[key] = doc
	w.touch()
	return nil
}

// Detach removes a staged file. Unknown keys are ignored.
func (w *Wizard) Detach(key string) {
	delete(w.draft.Documents, key)
	w.touch()
}

// Missing lists the checklist entries without an attached file, in checklist order.
func (w *Wizard) Missing() []models.DocumentRequirement {
	var missing []models.DocumentRequirement
	for _, req := range w.checklist {
		if _, ok := w.draft.Documents[req.Key]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// Validate reports whether every checklist entry has a file.
func (w *Wizard) Validate() bool {
	return len(w.Missing()) == 0
}

// CanSubmit is true only on the last section with a complete checklist.
func (w *Wizard) CanSubmit() bool {
	return w.IsLast() && w.Validate()
}

func (w *Wizard) inChecklist(key string) bool {
	for _, req := range w.checklist {
		if req.Key == key {
			return true
		}
	}
	return false
}

func (w *Wizard) touch() {
	w.draft.UpdatedAt = time.Now().UTC()
}

func fieldByID(id string) (Field, bool) {
	for _, s := range Sections {
		for _, f := range s.Fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return Field{}, false
}
