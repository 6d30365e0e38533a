package wizard

import (
	"strings"
	"unicode"

	"immigration-portal/internal/models"
)

// DefaultChecklist applies when a program declares no required documents.
var DefaultChecklist = []models.DocumentRequirement{
	{Key: "passport", Label: "Passport"},
	{Key: "education_certificate", Label: "Education Certificate"},
	{Key: "resume", Label: "Resume/CV"},
	{Key: "police_clearance", Label: "Police Clearance"},
	{Key: "language_test", Label: "Language Test Results"},
	{Key: "work_experience", Label: "Work Experience Letters"},
}

// ChecklistFor turns a program's document labels into checklist entries.
// Blank labels and duplicate keys are skipped.
func ChecklistFor(requiredDocuments []string) []models.DocumentRequirement {
	out := make([]models.DocumentRequirement, 0, len(requiredDocuments))
	seen := make(map[string]bool)
	for _, label := range requiredDocuments {
		label = strings.TrimSpace(label)
		key := Slugify(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.DocumentRequirement{Key: key, Label: label})
	}
	if len(out) == 0 {
		return DefaultChecklist
	}
	return out
}

// Slugify lower-cases label and joins its alphanumeric runs with underscores.
func Slugify(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
