package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"examreg/internal/registration/models"
	dErrors "examreg/pkg/domain-errors"
)

type createResponse struct {
	Registration *models.Registration `json:"registration"`
	Created      bool                 `json:"created"`
}

type listResponse struct {
	Registrations []*models.Registration `json:"registrations"`
}

type errorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message,omitempty"`
	Fields  []dErrors.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler emits the same JSON error envelope. Unknown errors collapse to an
// opaque internal failure; internals never leak persistence detail.
func writeError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	body := errorResponse{
		Error:   string(de.Code),
		Message: de.Message,
		Fields:  de.Fields,
	}
	if de.Code == dErrors.CodeInternal {
		body.Message = "internal error"
	}
	writeJSON(w, dErrors.ToHTTPStatus(de.Code), body)
}
