package api

// TranslateRequest is the body of POST /v1/translate.
type TranslateRequest struct {
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

// TranslateResponse is the body of a successful translation.
type TranslateResponse struct {
	RequestID   string         `json:"request_id"`
	Direction   string         `json:"direction"`
	Translation string         `json:"translation"`
	Stats       TranslateStats `json:"stats"`
}

type TranslateStats struct {
	PromptTokens    int    `json:"prompt_tokens"`
	TokensGenerated int    `json:"tokens_generated"`
	DurationMS      int64  `json:"duration_ms"`
	HitTokenLimit   bool   `json:"hit_token_limit,omitempty"`
	StopReason      string `json:"stop_reason"`
}

// ModelStatusResponse is the body of GET /v1/model/status and of the
// download/load endpoints, which return the post-action status.
type ModelStatusResponse struct {
	Name       string `json:"name"`
	FileName   string `json:"file_name"`
	Downloaded bool   `json:"downloaded"`
	Loaded     bool   `json:"loaded"`
	State      string `json:"state"`
	GPU        bool   `json:"gpu"`
}

// LanguagesResponse is the body of GET /v1/languages.
type LanguagesResponse struct {
	Directions []string `json:"directions"`
}

// ErrorBody is the envelope every failed request carries.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
