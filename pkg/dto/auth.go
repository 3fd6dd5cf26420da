package dto

type SignInResponse struct {
	URL          string `json:"url"`
	SessionToken string `json:"session_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
