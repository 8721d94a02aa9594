package controllers

// ingestResp is the body returned for an accepted record.
type ingestResp struct {
	Message      string `json:"message"`
	TotalRecords int    `json:"total_records"`
}

// healthResp reports liveness and the current buffer size.
type healthResp struct {
	Status       string `json:"status"`
	TotalRecords int    `json:"total_records"`
}
