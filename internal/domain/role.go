package domain

// Role representa un rol asignable y la autoridad que otorga.
type Role struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Authority string `json:"authority"`
}
