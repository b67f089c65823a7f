package whatsapp

type SendMessageInput struct {
	PhoneNumber  string   // Ex: "5219991234567"
	TemplateName string   // Ex: "sync_failure_alert"
	Parameters   []string // Ex: []string{"incremental", "kommo events page 3 failed"}
}

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Error *ErrorResponse `json:"error"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}
