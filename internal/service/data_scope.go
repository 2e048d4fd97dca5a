package service

import "admin-sys/internal/repository"

// AuthorityAdmin otorga visibilidad total sobre las filas de usuario.
const AuthorityAdmin = "ROLE_ADMIN"

// DataScopeFromClaims construye el filtro de alcance de filas del solicitante:
// un administrador ve todo, un usuario con organización ve su organización y
// cualquier otro solo su propia fila.
func DataScopeFromClaims(claims Claims) repository.ScopeFilter {
	for _, authority := range claims.Authorities {
		if authority == AuthorityAdmin {
			return repository.ScopeFilter{}
		}
	}
	if claims.OrgID != "" {
		return repository.ScopeFilter{
			SQL:  "u.org_id = ?",
			Args: []any{claims.OrgID},
		}
	}
	return repository.ScopeFilter{
		SQL:  "u.id = ?",
		Args: []any{claims.UserID},
	}
}
