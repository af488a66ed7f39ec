package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// bindAndValidate binds the JSON body and runs the binding tags. Tag failures
// come back as a 422 with a field→rule map; anything else (malformed JSON,
// wrong types) is a plain 400. Returns false when the response is written —
// the caller must return without writing another one.
//
// Note on decimals: `required` on decimal.Decimal distinguishes an absent
// field from an explicit "0" (the parsed zero carries an allocated coefficient),
// so zero amounts pass where missing ones fail. Numeric tags (gt, gte) must
// not be placed on decimal fields.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string)
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			c.JSON(http.StatusUnprocessableEntity, apperr.NewValidationFields(fields))
			return false
		}
		c.JSON(http.StatusBadRequest, apperr.New("JSON inválido: "+err.Error()))
		return false
	}
	return true
}

// respondError maps a service error to its HTTP status via the domain kinds.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), apperr.New(err.Error()))
}

// pathID parses the :id path parameter as a UUID. Returns uuid.Nil and writes
// the error response when the parameter is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperr.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *gin.Context, name string) *uuid.UUID {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return &id
	}
	return nil
}

// queryTimeRange parses optional "from"/"to" query parameters. Both RFC 3339
// timestamps and plain dates (2006-01-02) are accepted; a plain "to" date is
// inclusive of the whole day.
func queryTimeRange(c *gin.Context) (*time.Time, *time.Time) {
	return parseQueryTime(c.Query("from"), false), parseQueryTime(c.Query("to"), true)
}

func parseQueryTime(raw string, endOfDay bool) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t
	}
	return nil
}
