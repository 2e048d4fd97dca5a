package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"admin-sys/internal/domain"
	"admin-sys/internal/repository"
)

// UserService coordina reglas de negocio para la administración de usuarios.
type UserService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	roles      repository.RoleRepository
	caches     []UserCache
	bcryptCost int
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, roles repository.RoleRepository, caches []UserCache, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		logger:     logger,
		users:      users,
		roles:      roles,
		caches:     caches,
		bcryptCost: bcryptCost,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrLoginIDRequired    = errors.New("login id required")
	ErrLoginIDTaken       = errors.New("login id already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordRequired   = errors.New("password required")
	ErrPasswordLength     = errors.New("password length out of range")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("user locked")
)

// UserView es la forma de lectura: el usuario junto a sus roles resueltos,
// sin exponer credenciales.
type UserView struct {
	domain.User
	RoleIDs     []string `json:"role_ids"`
	RoleNames   []string `json:"role_names"`
	Authorities []string `json:"authorities"`
}

// SaveUserInput es la forma de escritura; la contraseña viaja en texto plano
// solo dentro del request y nunca se persiste tal cual.
type SaveUserInput struct {
	ID              string
	LoginID         string
	Password        string
	ConfirmPassword string
	Avatar          string
	OrgID           string
	Name            string
	Phone           string
	Email           string
	Activated       bool
	LangKey         string
	RoleIDs         []string
}

// Save crea o actualiza un usuario según la presencia del identificador.
// La verificación de unicidad previa es una cortesía: la garantía real es el
// índice único del almacenamiento, que se traduce aquí ante una carrera.
func (s *UserService) Save(ctx context.Context, input SaveUserInput) (domain.User, error) {
	loginID := strings.ToLower(strings.TrimSpace(input.LoginID))
	if loginID == "" {
		return domain.User{}, ErrLoginIDRequired
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := strings.TrimSpace(input.Password)
	confirm := strings.TrimSpace(input.ConfirmPassword)

	if password != "" && confirm != "" && password != confirm {
		return domain.User{}, ErrPasswordMismatch
	}
	if password != "" {
		// Los límites se miden en caracteres; bcrypt impone además 72 bytes.
		runes := utf8.RuneCountInString(password)
		if runes < domain.PasswordMinLength || runes > domain.PasswordMaxLength || len(password) > 72 {
			return domain.User{}, ErrPasswordLength
		}
	}

	if count, err := s.users.CountConflicts(ctx, "login_id", loginID, input.ID); err != nil {
		return domain.User{}, err
	} else if count > 0 {
		return domain.User{}, ErrLoginIDTaken
	}
	if email != "" {
		if count, err := s.users.CountConflicts(ctx, "email", email, input.ID); err != nil {
			return domain.User{}, err
		} else if count > 0 {
			return domain.User{}, ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	var user domain.User

	if input.ID != "" {
		existing, err := s.users.GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.User{}, ErrUserNotFound
			}
			return domain.User{}, err
		}
		hash := existing.PasswordHash
		if password != "" {
			hash, err = s.hashPassword(password)
			if err != nil {
				return domain.User{}, err
			}
		}
		user = existing
		user.LoginID = loginID
		user.PasswordHash = hash
		user.Avatar = strings.TrimSpace(input.Avatar)
		user.OrgID = strings.TrimSpace(input.OrgID)
		user.Name = strings.TrimSpace(input.Name)
		user.Phone = strings.TrimSpace(input.Phone)
		user.Email = email
		user.Activated = input.Activated
		user.LangKey = strings.TrimSpace(input.LangKey)
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return domain.User{}, translateUniqueViolation(err)
		}
	} else {
		if password == "" {
			return domain.User{}, ErrPasswordRequired
		}
		hash, err := s.hashPassword(password)
		if err != nil {
			return domain.User{}, err
		}
		user = domain.User{
			ID:           uuid.NewString(),
			LoginID:      loginID,
			PasswordHash: hash,
			Avatar:       strings.TrimSpace(input.Avatar),
			OrgID:        strings.TrimSpace(input.OrgID),
			Name:         strings.TrimSpace(input.Name),
			Phone:        strings.TrimSpace(input.Phone),
			Email:        email,
			Activated:    input.Activated,
			LangKey:      strings.TrimSpace(input.LangKey),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Insert(ctx, user); err != nil {
			return domain.User{}, translateUniqueViolation(err)
		}
	}

	if input.RoleIDs != nil {
		if err := s.roles.ReplaceUserRoles(ctx, user.ID, input.RoleIDs); err != nil {
			return domain.User{}, err
		}
	}

	s.invalidateCaches(ctx)
	return user, nil
}

// FindPage devuelve una página de usuarios con sus roles resueltos, restringida
// por el filtro de alcance del solicitante.
func (s *UserService) FindPage(ctx context.Context, q repository.PageQuery, scope repository.ScopeFilter) ([]UserView, int64, error) {
	users, total, err := s.users.FindPage(ctx, q, scope)
	if err != nil {
		return nil, 0, err
	}
	if len(users) == 0 {
		return []UserView{}, total, nil
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	rolesByUser, err := s.roles.RolesByUserIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u, rolesByUser[u.ID]))
	}
	return views, total, nil
}

// FindOneByID devuelve el usuario con sus roles, o ErrUserNotFound si no existe.
func (s *UserService) FindOneByID(ctx context.Context, id string) (UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserView{}, ErrUserNotFound
		}
		return UserView{}, err
	}
	roles, err := s.roles.RolesByUserID(ctx, user.ID)
	if err != nil {
		return UserView{}, err
	}
	return newUserView(user, roles), nil
}

// Delete elimina usuarios por lista de ids; los desconocidos se ignoran.
func (s *UserService) Delete(ctx context.Context, ids []string) error {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := s.users.Delete(ctx, ids); err != nil {
		return err
	}
	s.invalidateCaches(ctx)
	return nil
}

// LockOrUnlock invierte la bandera de activación de cada id dado.
func (s *UserService) LockOrUnlock(ctx context.Context, ids []string) error {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := s.users.ToggleActivated(ctx, ids); err != nil {
		return err
	}
	s.invalidateCaches(ctx)
	return nil
}

// Authenticate valida credenciales y devuelve el usuario con sus autoridades,
// dejando la entrada de autorización en las cachés.
func (s *UserService) Authenticate(ctx context.Context, loginID, password string) (UserView, error) {
	loginID = strings.ToLower(strings.TrimSpace(loginID))
	password = strings.TrimSpace(password)
	if loginID == "" || password == "" {
		return UserView{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserView{}, ErrInvalidCredentials
		}
		return UserView{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return UserView{}, ErrInvalidCredentials
	}
	if !user.Activated {
		return UserView{}, ErrUserLocked
	}

	roles, err := s.roles.RolesByUserID(ctx, user.ID)
	if err != nil {
		return UserView{}, err
	}
	view := newUserView(user, roles)

	for _, cache := range s.caches {
		cache.SetAuthorities(ctx, view.LoginID, view.Authorities)
	}
	return view, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// invalidateCaches limpia ambas cachés tras una mutación. Es best-effort: un
// fallo se registra y no revierte la escritura ya confirmada.
func (s *UserService) invalidateCaches(ctx context.Context) {
	for _, cache := range s.caches {
		if err := cache.InvalidateAll(ctx); err != nil && s.logger != nil {
			s.logger.Warn("user cache invalidation failed", zap.Error(err))
		}
	}
}

func newUserView(user domain.User, roles []domain.Role) UserView {
	view := UserView{
		User:        user,
		RoleIDs:     make([]string, 0, len(roles)),
		RoleNames:   make([]string, 0, len(roles)),
		Authorities: make([]string, 0, len(roles)),
	}
	for _, role := range roles {
		view.RoleIDs = append(view.RoleIDs, role.ID)
		view.RoleNames = append(view.RoleNames, role.Name)
		view.Authorities = append(view.Authorities, role.Authority)
	}
	return view
}

// translateUniqueViolation convierte la violación del índice único (la
// garantía real ante escrituras concurrentes) en el mismo error de conflicto
// que la verificación previa.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "login_id"):
		return ErrLoginIDTaken
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrEmailTaken
	default:
		return err
	}
}

func compactIDs(ids []string) []string {
	kept := ids[:0]
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			kept = append(kept, id)
		}
	}
	return kept
}
