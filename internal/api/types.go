package api

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type VerifyCheck struct {
	Via    string `json:"via"`
	SHA256 string `json:"sha256"`
	OK     bool   `json:"ok"`
}

type VerifyResponse struct {
	SHA256 string        `json:"sha256"`
	OK     bool          `json:"ok"`
	Checks []VerifyCheck `json:"checks"`
}
