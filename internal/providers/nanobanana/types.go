package nanobanana

type submitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

type statusRequest struct {
	TaskID string `json:"taskId"`
}

type statusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status        string        `json:"status"`
		Results       []resultEntry `json:"results"`
		FailureReason string        `json:"failure_reason"`
		Error         string        `json:"error"`
	} `json:"data"`
}

type resultEntry struct {
	URL string `json:"url"`
}
