package backend

// ErrorResponse is the backend's error envelope.
//
//	{"success": false, "message": "Protected route, Oauth2 Bearer token not found"}
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
