package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/i18n"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
)

// Responder writes the {success, message, <payload>} envelope with messages
// in the caller's language.
type Responder struct {
	translator *i18n.Translator
	logger     logger.ZapLogger
}

func NewResponder(translator *i18n.Translator, log logger.ZapLogger) *Responder {
	return &Responder{translator: translator, logger: log}
}

type errorBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Kind   apperror.Kind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Error("failed to encode response", zap.Error(err))
	}
}

// Success answers with payload under key. An empty messageID leaves the
// message out.
func (rs *Responder) Success(w http.ResponseWriter, r *http.Request, status int, messageID, key string, payload interface{}) {
	body := map[string]interface{}{"success": true}
	if messageID != "" {
		body["message"] = rs.translator.T(r.Header.Get("Accept-Language"), messageID, messageID)
	}
	body[key] = payload
	rs.JSON(w, status, body)
}

// Error maps err onto a status code. Store failures are logged and answered
// without their cause.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	status := StatusFor(kind)

	messageID := "error." + strings.ToLower(string(kind))
	detail := &errorDetail{Kind: kind}
	if kind == apperror.KindStoreFailure {
		rs.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			detail.Detail = appErr.Message
		}
	}

	rs.JSON(w, status, errorBody{
		Success: false,
		Message: rs.translator.T(r.Header.Get("Accept-Language"), messageID, http.StatusText(status)),
		Error:   detail,
	})
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation,
		apperror.KindSelfParent,
		apperror.KindCyclicParent,
		apperror.KindMissingParent,
		apperror.KindEmptyInput,
		apperror.KindUnknownCategory:
		return http.StatusUnprocessableEntity
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindDuplicateName, apperror.KindDuplicateSlug:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
