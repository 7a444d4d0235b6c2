package model

// User is the local read model of an account owned by the auth service.
type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	Role     string `db:"role" json:"role"`
}
