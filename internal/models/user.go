package models

type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAgent, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role,omitempty"`
}

type ImportResult struct {
	Success    int    `json:"success"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	RejectsURL string `json:"rejects_url,omitempty"`
}
