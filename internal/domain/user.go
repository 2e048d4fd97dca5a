package domain

import "time"

// Límites de longitud de contraseña en texto plano.
const (
	PasswordMinLength = 6
	PasswordMaxLength = 64
)

// User representa una cuenta administrable del sistema.
type User struct {
	ID            string     `json:"id"`
	LoginID       string     `json:"login_id"`
	PasswordHash  string     `json:"-"`
	Avatar        string     `json:"avatar,omitempty"`
	OrgID         string     `json:"org_id,omitempty"`
	Name          string     `json:"name,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Activated     bool       `json:"activated"`
	LangKey       string     `json:"lang_key,omitempty"`
	ActivationKey string     `json:"-"`
	ResetKey      string     `json:"-"`
	ResetDate     *time.Time `json:"reset_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
