package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/vegasq/parqview/internal/apperr"
)

var jsonContentType = []string{"application/json; charset=utf-8"}

// jsonRender encodes responses with goccy/go-json.
type jsonRender struct {
	Data interface{}
}

// Render implements render.Render.
func (r jsonRender) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	data, err := json.Marshal(r.Data)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteContentType implements render.Render.
func (r jsonRender) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if len(header["Content-Type"]) == 0 {
		header["Content-Type"] = jsonContentType
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func respond(c *gin.Context, status int, v interface{}) {
	c.Render(status, jsonRender{Data: v})
}

// fail writes err as {"detail": ...} with the status its kind maps to. The
// error is attached to the context for the access log.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	respond(c, apperr.StatusCode(err), errorResponse{Detail: apperr.Detail(err)})
	c.Abort()
}
