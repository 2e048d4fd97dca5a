package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-sys/internal/repository"
	"admin-sys/internal/service"
)

// Separador de listas de ids en la ruta.
const idsSeparator = ","

// UserHandler mantiene dependencias para los endpoints de administración de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// GetPage maneja GET /sys/user/page.
func (h *UserHandler) GetPage(c *gin.Context) {
	pageNum, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("size"))

	q := repository.PageQuery{
		PageNum:  pageNum,
		PageSize: pageSize,
		LoginID:  c.Query("login_id"),
		Name:     c.Query("name"),
		OrgID:    c.Query("org_id"),
		OrderBy:  c.Query("order_by"),
	}

	claims, ok := GetAuthClaims(c)
	if !ok {
		Fail(c, http.StatusUnauthorized, "missing token")
		return
	}
	scope := service.DataScopeFromClaims(claims)

	users, total, err := h.userServ.FindPage(c.Request.Context(), q, scope)
	if err != nil {
		h.logger.Error("find user page failed", zap.Error(err))
		Fail(c, http.StatusInternalServerError, "could not list users")
		return
	}

	OK(c, PageResult[service.UserView]{List: users, Total: total})
}

// GetUser maneja GET /sys/user/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	user, err := h.userServ.FindOneByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			Fail(c, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get user failed", zap.Error(err), zap.String("id", id))
		Fail(c, http.StatusInternalServerError, "could not get user")
		return
	}

	OK(c, user)
}

// Save maneja POST /sys/user/ (crea o actualiza segun la presencia del id).
// confirmPassword llega por query string, separado del formulario.
func (h *UserHandler) Save(c *gin.Context) {
	var req struct {
		ID        string   `json:"id"`
		LoginID   string   `json:"login_id" binding:"required"`
		Password  string   `json:"password"`
		Avatar    string   `json:"avatar"`
		OrgID     string   `json:"org_id"`
		Name      string   `json:"name"`
		Phone     string   `json:"phone"`
		Email     string   `json:"email"`
		Activated bool     `json:"activated"`
		LangKey   string   `json:"lang_key"`
		RoleIDs   []string `json:"role_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid save user request", zap.Error(err))
		Fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userServ.Save(c.Request.Context(), service.SaveUserInput{
		ID:              req.ID,
		LoginID:         req.LoginID,
		Password:        req.Password,
		ConfirmPassword: c.Query("confirmPassword"),
		Avatar:          req.Avatar,
		OrgID:           req.OrgID,
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Activated:       req.Activated,
		LangKey:         req.LangKey,
		RoleIDs:         req.RoleIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch),
			errors.Is(err, service.ErrPasswordLength),
			errors.Is(err, service.ErrPasswordRequired),
			errors.Is(err, service.ErrLoginIDRequired),
			errors.Is(err, service.ErrLoginIDTaken),
			errors.Is(err, service.ErrEmailTaken):
			Fail(c, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrUserNotFound):
			Fail(c, http.StatusNotFound, "user not found")
			return
		default:
			h.logger.Error("save user failed", zap.Error(err))
			Fail(c, http.StatusInternalServerError, "could not save user")
			return
		}
	}

	OKAck(c, "save", user.LoginID)
}

// Delete maneja DELETE /sys/user/:ids (ids separados por coma, best-effort).
func (h *UserHandler) Delete(c *gin.Context) {
	ids := splitIDs(c.Param("ids"))

	if err := h.userServ.Delete(c.Request.Context(), ids); err != nil {
		h.logger.Error("delete users failed", zap.Error(err))
		Fail(c, http.StatusInternalServerError, "could not delete users")
		return
	}

	OKAck(c, "delete", strings.Join(ids, idsSeparator))
}

// LockOrUnlock maneja POST /sys/user/lock/:ids.
func (h *UserHandler) LockOrUnlock(c *gin.Context) {
	ids := splitIDs(c.Param("ids"))

	if err := h.userServ.LockOrUnlock(c.Request.Context(), ids); err != nil {
		h.logger.Error("lock users failed", zap.Error(err))
		Fail(c, http.StatusInternalServerError, "could not lock users")
		return
	}

	OKAck(c, "lock", strings.Join(ids, idsSeparator))
}

// splitIDs separa la lista de ids de la ruta descartando segmentos vacíos,
// de modo que el ack refleje solo los ids realmente procesados.
func splitIDs(raw string) []string {
	parts := strings.Split(raw, idsSeparator)
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	return kept
}
