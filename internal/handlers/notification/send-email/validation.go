package sendemail

import "immigration-portal/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"to", "subject", "content"},
		Properties: map[string]validation.Property{
			"to": {
				Type:        "string",
				Description: "Recipient address",
				Format:      "email",
				MaxLength:   validation.Int(320),
			},
			"subject": {
				Type:        "string",
				Description: "Subject line",
				MinLength:   validation.Int(1),
				MaxLength:   validation.Int(998),
			},
			"content": {
				Type:     "object",
				Required: []string{"text"},
				Properties: map[string]validation.Property{
					"text": {Type: "string", Description: "Plain-text body", MinLength: validation.Int(1)},
					"html": {Type: "string", Description: "HTML body"},
				},
			},
		},
		AdditionalProperties: validation.Bool(false),
	}
}
