package wizard

import "immigration-portal/internal/common/validation"

// Field input types.
const (
	TypeText     = "text"
	TypeDate     = "date"
	TypeEmail    = "email"
	TypeTel      = "tel"
	TypeTextarea = "textarea"
	TypeSelect   = "select"
	TypeNumber   = "number"
)

type Field struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

type Section struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Sections is the fixed, ordered application form.
var Sections = []Section{
	{
		ID:    "personal_info",
		Title: "Personal Information",
		Fields: []Field{
			{ID: "full_name", Label: "Full Name", Type: TypeText},
			{ID: "date_of_birth", Label: "Date of Birth", Type: TypeDate},
			{ID: "nationality", Label: "Nationality", Type: TypeText},
			{ID: "passport_number", Label: "Passport Number", Type: TypeText},
		},
	},
	{
		ID:    "contact_info",
		Title: "Contact Information",
		Fields: []Field{
			{ID: "email", Label: "Email Address", Type: TypeEmail},
			{ID: "phone", Label: "Phone Number", Type: TypeTel},
			{ID: "current_address", Label: "Current Address", Type: TypeTextarea},
		},
	},
	{
		ID:    "education",
		Title: "Education Background",
		Fields: []Field{
			{ID: "highest_education", Label: "Highest Level of Education", Type: TypeSelect, Options: []string{"High School", "Bachelor's", "Master's", "PhD"}},
			{ID: "field_of_study", Label: "Field of Study", Type: TypeText},
			{ID: "graduation_year", Label: "Year of Graduation", Type: TypeNumber},
		},
	},
	{
		ID:    "work_experience",
		Title: "Work Experience",
		Fields: []Field{
			{ID: "current_occupation", Label: "Current Occupation", Type: TypeText},
			{ID: "years_of_experience", Label: "Years of Experience", Type: TypeNumber},
			{ID: "skills", Label: "Key Skills", Type: TypeTextarea},
		},
	},
}

// LastIndex is the index of the final section, where documents are attached.
var LastIndex = len(Sections) - 1

var answersSchema = buildAnswersSchema(Sections)

// buildAnswersSchema derives a JSON schema accepting any subset of the known fields.
func buildAnswersSchema(sections []Section) validation.JSONSchema {
	props := make(map[string]validation.Property)
	for _, s := range sections {
		for _, f := range s.Fields {
			props[f.ID] = propertyFor(f)
		}
	}
	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: validation.Bool(false),
	}
}

func propertyFor(f Field) validation.Property {
	switch f.Type {
	case TypeNumber:
		return validation.Property{Type: "number", Minimum: validation.Float(0)}
	case TypeSelect:
		return validation.Property{Type: "string", Enum: f.Options}
	case TypeDate:
		return validation.Property{Type: "string", Format: "date"}
	case TypeEmail:
		return validation.Property{Type: "string", Format: "email"}
	case TypeTel:
		return validation.Property{Type: "string", Pattern: `^\+?[\d\s\-\(\)]{7,}$`}
	default:
		return validation.Property{Type: "string", MaxLength: validation.Int(5000)}
	}
}

// QuestionsDocument is the form definition stored with the submitted answers.
func QuestionsDocument() []Section {
	return Sections
}
