package sendemail

import (
	"context"
	"time"

	commonhttp "immigration-portal/internal/common/http"
)

// HTTPRelay posts messages to a transactional email API with a bearer key.
type HTTPRelay struct {
	url    string
	apiKey string
	client *commonhttp.Client
}

func NewHTTPRelay(url, apiKey string, timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{url: url, apiKey: apiKey, client: commonhttp.NewClient(timeout)}
}

type relayRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

type relayResponse struct {
	ID string `json:"id"`
}

func (r *HTTPRelay) Send(ctx context.Context, from, to, subject, text, html string) (string, error) {
	var resp relayResponse
	err := r.client.PostJSON(ctx, r.url, map[string]string{
		"Authorization": "Bearer " + r.apiKey,
	}, relayRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		HTML:    html,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}
