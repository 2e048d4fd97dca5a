package repository

import (
	"fmt"
	"strings"
)

// ScopeFilter restringe las filas visibles para quien consulta (control de
// acceso a nivel de fila). SQL usa '?' como placeholder por cada argumento;
// un filtro vacío no restringe nada.
type ScopeFilter struct {
	SQL  string
	Args []any
}

// IsZero indica si el filtro no restringe filas.
func (f ScopeFilter) IsZero() bool {
	return strings.TrimSpace(f.SQL) == ""
}

// appendScope agrega el fragmento del filtro al WHERE renumerando placeholders.
func appendScope(where string, args []any, f ScopeFilter) (string, []any) {
	if f.IsZero() {
		return where, args
	}
	frag := f.SQL
	for _, a := range f.Args {
		args = append(args, a)
		frag = strings.Replace(frag, "?", fmt.Sprintf("$%d", len(args)), 1)
	}
	return where + " AND (" + frag + ")", args
}
