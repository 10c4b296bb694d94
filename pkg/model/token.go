package model

// TokenPair is what the login, activation, and refresh endpoints return:
// a short-lived access token used per request and a long-lived refresh
// token used only to mint new access tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsComplete reports whether both tokens are present. The session layer
// must never operate with only one of the two set.
func (p TokenPair) IsComplete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
