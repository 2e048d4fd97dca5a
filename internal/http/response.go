package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse es el sobre uniforme de todas las respuestas del servicio.
type APIResponse[T any] struct {
	Code      string `json:"code"`
	Data      T      `json:"data"`
	Msg       string `json:"msg"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// PageResult representa un resultado paginado genérico.
type PageResult[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
}

// Ack es la confirmación mínima de una operación: etiqueta e identificador afectado.
type Ack struct {
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
}

func nowString() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// OK envuelve datos en una respuesta exitosa.
func OK[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, APIResponse[T]{
		Code:      "200",
		Data:      data,
		Msg:       "ok",
		Success:   true,
		Timestamp: nowString(),
	})
}

// OKAck responde con la confirmación de una operación de escritura.
func OKAck(c *gin.Context, operation, target string) {
	OK(c, Ack{Operation: operation, Target: target})
}

// Fail responde con el sobre de error y el estado HTTP dado.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, APIResponse[any]{
		Code:      strconv.Itoa(status),
		Data:      nil,
		Msg:       msg,
		Success:   false,
		Timestamp: nowString(),
	})
}
