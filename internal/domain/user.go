package domain

// User is the signed-in profile as returned by the remote auth API.
type User struct {
	ID       string `json:"_id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
}
