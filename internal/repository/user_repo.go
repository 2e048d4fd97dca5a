package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"admin-sys/internal/domain"
)

// PageQuery agrupa los parámetros de paginación y filtrado de la lista de usuarios.
type PageQuery struct {
	PageNum  int
	PageSize int
	LoginID  string
	Name     string
	OrgID    string
	OrderBy  string
}

// Columnas de ordenamiento aceptadas; cualquier otro valor cae al orden por defecto.
var userOrderColumns = map[string]string{
	"login_id":    "u.login_id ASC",
	"name":        "u.name ASC",
	"created_at":  "u.created_at ASC",
	"-login_id":   "u.login_id DESC",
	"-name":       "u.name DESC",
	"-created_at": "u.created_at DESC",
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	FindPage(ctx context.Context, q PageQuery, scope ScopeFilter) ([]domain.User, int64, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByLoginID(ctx context.Context, loginID string) (domain.User, error)
	CountConflicts(ctx context.Context, field, value, excludeID string) (int64, error)
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, ids []string) error
	ToggleActivated(ctx context.Context, ids []string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	u.id, u.login_id, u.password_hash, u.avatar, u.org_id, u.name, u.phone,
	u.email, u.activated, u.lang_key, u.activation_key, u.reset_key,
	u.reset_date, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.LoginID,
		&u.PasswordHash,
		&u.Avatar,
		&u.OrgID,
		&u.Name,
		&u.Phone,
		&u.Email,
		&u.Activated,
		&u.LangKey,
		&u.ActivationKey,
		&u.ResetKey,
		&u.ResetDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *PgUserRepository) FindPage(ctx context.Context, q PageQuery, scope ScopeFilter) ([]domain.User, int64, error) {
	where := "WHERE u.del_flag = 0"
	args := []any{}

	if login := strings.TrimSpace(q.LoginID); login != "" {
		args = append(args, "%"+login+"%")
		where += fmt.Sprintf(" AND u.login_id ILIKE $%d", len(args))
	}
	if name := strings.TrimSpace(q.Name); name != "" {
		args = append(args, "%"+name+"%")
		where += fmt.Sprintf(" AND u.name ILIKE $%d", len(args))
	}
	if org := strings.TrimSpace(q.OrgID); org != "" {
		args = append(args, org)
		where += fmt.Sprintf(" AND u.org_id = $%d", len(args))
	}
	where, args = appendScope(where, args, scope)

	var total int64
	countQuery := "SELECT COUNT(*) FROM sys_user AS u " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}

	pageNum := q.PageNum
	if pageNum <= 0 {
		pageNum = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	orderBy, ok := userOrderColumns[strings.TrimSpace(q.OrderBy)]
	if !ok {
		orderBy = "u.created_at DESC"
	}

	args = append(args, pageSize, (pageNum-1)*pageSize)
	query := fmt.Sprintf(
		"SELECT %s FROM sys_user AS u %s ORDER BY %s LIMIT $%d OFFSET $%d",
		userColumns, where, orderBy, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM sys_user AS u WHERE u.id = $1 AND u.del_flag = 0", userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByLoginID(ctx context.Context, loginID string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM sys_user AS u WHERE u.login_id = $1 AND u.del_flag = 0", userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, loginID))
}

// CountConflicts cuenta usuarios no eliminados que ya usan el valor dado en la
// columna indicada, excluyendo al propio candidato.
func (r *PgUserRepository) CountConflicts(ctx context.Context, field, value, excludeID string) (int64, error) {
	// field proviene de un conjunto fijo del servicio, nunca del cliente.
	switch field {
	case "login_id", "email", "phone":
	default:
		return 0, errors.New("unsupported conflict field: " + field)
	}
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM sys_user WHERE %s = $1 AND del_flag = 0 AND id <> $2",
		field,
	)
	var count int64
	err := r.pool.QueryRow(ctx, query, value, excludeID).Scan(&count)
	return count, err
}

func (r *PgUserRepository) Insert(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO sys_user (
			id, login_id, password_hash, avatar, org_id, name, phone, email,
			activated, lang_key, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.LoginID,
		user.PasswordHash,
		user.Avatar,
		user.OrgID,
		user.Name,
		user.Phone,
		user.Email,
		user.Activated,
		user.LangKey,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE sys_user
		SET login_id = $2, password_hash = $3, avatar = $4, org_id = $5,
		    name = $6, phone = $7, email = $8, activated = $9, lang_key = $10,
		    updated_at = $11
		WHERE id = $1 AND del_flag = 0
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.LoginID,
		user.PasswordHash,
		user.Avatar,
		user.OrgID,
		user.Name,
		user.Phone,
		user.Email,
		user.Activated,
		user.LangKey,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete marca como eliminados los ids dados; los desconocidos se ignoran.
func (r *PgUserRepository) Delete(ctx context.Context, ids []string) error {
	const query = `
		UPDATE sys_user
		SET del_flag = 1, updated_at = now()
		WHERE id = ANY($1) AND del_flag = 0
	`
	_, err := r.pool.Exec(ctx, query, ids)
	return err
}

// ToggleActivated invierte la bandera de activación de los ids dados.
func (r *PgUserRepository) ToggleActivated(ctx context.Context, ids []string) error {
	const query = `
		UPDATE sys_user
		SET activated = NOT activated, updated_at = now()
		WHERE id = ANY($1) AND del_flag = 0
	`
	_, err := r.pool.Exec(ctx, query, ids)
	return err
}
