package openai

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Tools []tool         `json:"tools"`
}

// inputMessage content is either a plain string (developer) or a list of
// content parts (user).
type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type inputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type tool struct {
	Type          string `json:"type"`
	Quality       string `json:"quality,omitempty"`
	InputFidelity string `json:"input_fidelity,omitempty"`
}

type responsesResponse struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Output []outputItem  `json:"output"`
	Error  *apiErrorBody `json:"error"`
}

type outputItem struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Result string `json:"result"`
}

type errorEnvelope struct {
	Error *apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
