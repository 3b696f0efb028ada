package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/middleware"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/response"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "email":
		return apperr.Validation("%s must be a valid email address", fe.Field())
	case "min", "gte", "gt":
		return apperr.Validation("%s must be at least %s", fe.Field(), orZero(fe.Param()))
	case "max", "lte":
		return apperr.Validation("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return apperr.Validation("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return apperr.Validation("%s is invalid", fe.Field())
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return id, nil
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperr.Validation("Invalid %s", key)
	}
	return v, nil
}

func queryFloat(r *http.Request, key string, required bool) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		if required {
			return 0, apperr.Validation("%s is required", key)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Validation("Invalid %s", key)
	}
	return v, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("Invalid %s", key)
	}
	return &v, nil
}

// parsePagination reads page and limit, clamping limit to maxLimit.
func parsePagination(r *http.Request) (page, limit int, err error) {
	page, limit = defaultPage, defaultLimit
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page > math.MaxInt32/limit {
		return 0, 0, apperr.Validation("page is out of range")
	}
	return page, limit, nil
}

func currentUser(r *http.Request) (int64, models.UserRole, error) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		return 0, "", apperr.Unauthorized("User not authenticated")
	}
	role, _ := middleware.GetUserRole(r)
	return userID, role, nil
}

type base struct {
	logger zerolog.Logger
}

func (h base) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) != apperr.KindInternal {
		h.logger.Debug().Err(err).Str("request_id", middleware.GetRequestID(r)).Msg("Request rejected")
	}
	response.FromError(w, h.logger.With().Str("request_id", middleware.GetRequestID(r)).Logger(), err)
}

func (h base) respondWithJSON(w http.ResponseWriter, code int, message string, payload any) {
	response.Success(w, code, message, payload)
}

func (h base) respondWithPage(w http.ResponseWriter, message string, payload any, page, limit, total int) {
	response.Paginated(w, message, payload, response.NewPagination(page, limit, total))
}
