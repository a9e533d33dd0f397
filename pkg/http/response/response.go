package response

import (
	"encoding/json"
	"net/http"

	"github.com/trackify-io/trackify/constants"
	"github.com/trackify-io/trackify/pkg/types"
)

func JSON(w http.ResponseWriter, code int, data interface{}) {
	for _, header := range constants.DefaultResponseHeaders {
		w.Header().Set(header.Name, header.Value)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	w.WriteHeader(code)

	if data == nil {
		return
	}

	var bytes []byte
	switch v := data.(type) {
	case string:
		bytes = []byte(v)
	default:
		var err error
		bytes, err = json.Marshal(data)
		if err != nil {
			panic(err)
		}
	}
	_, err := w.Write(bytes)
	if err != nil {
		panic(err)
	}
}

// Error writes an ErrorResponse with message.
func Error(w http.ResponseWriter, code int, message string, detail interface{}) {
	JSON(w, code, types.ErrorResponse{Message: message, Error: detail})
}
