package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"admin-sys/internal/domain"
)

// RoleRepository resuelve las asociaciones usuario-rol de forma explícita,
// en una consulta aparte del usuario para evitar joins ocultos.
type RoleRepository interface {
	RolesByUserID(ctx context.Context, userID string) ([]domain.Role, error)
	RolesByUserIDs(ctx context.Context, userIDs []string) (map[string][]domain.Role, error)
	ReplaceUserRoles(ctx context.Context, userID string, roleIDs []string) error
}

// PgRoleRepository implementa RoleRepository usando pgxpool.
type PgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoleRepository(pool *pgxpool.Pool) *PgRoleRepository {
	return &PgRoleRepository{pool: pool}
}

func (r *PgRoleRepository) RolesByUserID(ctx context.Context, userID string) ([]domain.Role, error) {
	const query = `
		SELECT r.id, r.name, r.authority
		FROM sys_role AS r
		JOIN sys_user_role AS ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Authority); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// RolesByUserIDs resuelve los roles de una página completa en una sola consulta.
func (r *PgRoleRepository) RolesByUserIDs(ctx context.Context, userIDs []string) (map[string][]domain.Role, error) {
	result := make(map[string][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	const query = `
		SELECT ur.user_id, r.id, r.name, r.authority
		FROM sys_role AS r
		JOIN sys_user_role AS ur ON ur.role_id = r.id
		WHERE ur.user_id = ANY($1)
		ORDER BY r.name
	`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var role domain.Role
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Authority); err != nil {
			return nil, err
		}
		result[userID] = append(result[userID], role)
	}
	return result, rows.Err()
}

// ReplaceUserRoles reemplaza las asignaciones de rol del usuario en una transacción.
func (r *PgRoleRepository) ReplaceUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM sys_user_role WHERE user_id = $1", userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if roleID == "" {
			continue
		}
		const insert = "INSERT INTO sys_user_role (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING"
		if _, err := tx.Exec(ctx, insert, userID, roleID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
