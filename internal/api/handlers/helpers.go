package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/utils"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/validator"
)

// platformParam reads the {platform} URL parameter, writing a 400 when it is unknown
func platformParam(w http.ResponseWriter, r *http.Request) (platform.Platform, bool) {
	raw := chi.URLParam(r, "platform")
	p, err := platform.Parse(raw)
	if err != nil {
		utils.WriteError(w, errors.UnknownPlatform(raw))
		return "", false
	}
	return p, true
}

// decodeAndValidate decodes a JSON body into dst and validates it
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validator, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if errs := v.Validate(dst); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return false
	}
	return true
}
