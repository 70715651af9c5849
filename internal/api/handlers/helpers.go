package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fbos/fieldservice/internal/api/middleware"
	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
	"github.com/fbos/fieldservice/internal/pkg/validator"
)

// maxJSONBody bounds record API request bodies
const maxJSONBody = 1 << 20

// currentUser returns the authenticated user or writes a 401
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := middleware.GetUser(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("No authorization header"))
		return nil, false
	}
	return user, true
}

// decodeAndValidate reads a JSON body into dst and validates it, writing
// a 400 on failure
func decodeAndValidate(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			utils.WriteError(w, errors.BadRequest("Request body is required"))
			return false
		}
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}

	if errs := val.Validate(dst); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return false
	}
	return true
}

// writeServiceError logs server-side failures and writes any error as an
// AppError response
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	appErr := errors.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.ErrorWithErr(err, msg)
	}
	utils.WriteError(w, appErr)
}
