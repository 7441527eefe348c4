package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it. Every failure is an
// apperror Validation error.
func Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("request body is empty")
		}
		return apperror.Validation("invalid request body: " + err.Error())
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Validation(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag()))
	}
	return apperror.Validation(strings.Join(msgs, "; "))
}

// URLParamID returns the {key} path parameter. Anything that is not a UUID
// cannot name a row, so it is reported as not found.
func URLParamID(r *http.Request, key, resource string) (string, error) {
	id := chi.URLParam(r, key)
	if _, err := uuid.Parse(id); err != nil {
		return "", apperror.NotFound(resource, id)
	}
	return id, nil
}
