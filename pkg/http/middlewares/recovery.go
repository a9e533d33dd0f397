package middlewares

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/types"
	"go.uber.org/zap"
)

// ErrorCustomizer writes a response for err and reports whether it did.
type ErrorCustomizer func(err error, w http.ResponseWriter) (customized bool)

// Recovery turns panics raised by handlers into JSON error responses.
// CustomizeError may map typed errors to a status code, anything else is a
// 500.
type Recovery struct {
	CustomizeError ErrorCustomizer
}

func NewRecovery(customizeError ErrorCustomizer) *Recovery {
	return &Recovery{CustomizeError: customizeError}
}

func (m *Recovery) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			e := recover()
			if e == nil {
				return
			}
			if e == http.ErrAbortHandler {
				panic(e)
			}

			err, ok := e.(error)
			if !ok {
				err = fmt.Errorf("%v", e)
			}
			if m.CustomizeError != nil && m.CustomizeError(err, w) {
				return
			}

			buf := make([]byte, 2048)
			n := runtime.Stack(buf, false)
			zap.S().Errorw(fmt.Sprintf("panic recovered: %v\n %s", err, buf[:n]),
				"method", r.Method,
				"path", r.URL.Path,
			)
			response.JSON(w, http.StatusInternalServerError, types.ErrorResponse{Message: "internal error"})
		}()

		next.ServeHTTP(w, r)
	})
}
