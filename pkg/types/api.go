package types

// StatusResponse reports engine state over the HTTP status endpoint.
type StatusResponse struct {
	// Number of modals currently in the stack.
	// example: 1
	OpenModals int `json:"open_modals" example:"1"`
	// URL the engine currently tracks in the address bar.
	// example: /users?page=2
	CurrentURL string `json:"current_url" example:"/users?page=2"`
	// Live (non-expired) prefetch cache entries.
	// example: 3
	CacheEntries int `json:"cache_entries" example:"3"`
}

// ErrorResponse is the consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
