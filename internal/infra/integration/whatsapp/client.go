package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/http/middleware"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

const (
	DefaultBaseURL  = "https://graph.facebook.com/v18.0"
	DefaultTemplate = "sync_failure_alert"
	DefaultLanguage = "es_MX"

	// Template body parameters are capped by the Cloud API.
	maxParamLength = 1024
)

type Client struct {
	accessToken string
	phoneID     string
	to          string
	template    string
	language    string
	baseURL     string
	http        *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTemplate(name, language string) Option {
	return func(c *Client) {
		if name != "" {
			c.template = name
		}
		if language != "" {
			c.language = language
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient sends sync failure alerts to one on-call number through the
// WhatsApp Cloud API.
func NewClient(accessToken, phoneID, to string, opts ...Option) *Client {
	c := &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		to:          to,
		template:    DefaultTemplate,
		language:    DefaultLanguage,
		baseURL:     DefaultBaseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NotifySyncFailure implements the runner's failure notifier.
func (c *Client) NotifySyncFailure(ctx context.Context, report *entity.SyncReport) error {
	return c.SendMessage(ctx, SendMessageInput{
		PhoneNumber:  c.to,
		TemplateName: c.template,
		Parameters: []string{
			string(report.Mode),
			report.RunID,
			report.FinishedAt.Format(time.RFC3339),
			report.Error,
		},
	})
}

func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) error {
	if c.accessToken == "" || c.phoneID == "" {
		return fmt.Errorf("whatsapp not configured")
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                input.PhoneNumber,
		"type":              "template",
		"template": map[string]any{
			"name": input.TemplateName,
			"language": map[string]string{
				"code": c.language,
			},
			"components": []map[string]any{
				{
					"type":       "body",
					"parameters": convertParametersToAPI(input.Parameters),
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		middleware.RecordIntegrationError("whatsapp")
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if result.Error != nil {
		middleware.RecordIntegrationError("whatsapp")
		return fmt.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		middleware.RecordIntegrationError("whatsapp")
		return fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}

	logging.Ctx(ctx).Info().Str("to", input.PhoneNumber).Msg("✅ WhatsApp alert sent")
	return nil
}

func convertParametersToAPI(params []string) []map[string]string {
	result := make([]map[string]string, 0, len(params))
	for _, param := range params {
		if param == "" {
			param = "-"
		}
		if len(param) > maxParamLength {
			param = param[:maxParamLength]
		}
		result = append(result, map[string]string{
			"type": "text",
			"text": param,
		})
	}
	return result
}
