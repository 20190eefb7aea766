package handler

import (
	"net/http"
	"reflect"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apperror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apperror.NewValidation(fields))
		return false
	}
	return true
}

// respondErr maps a typed service error to its HTTP status and envelope.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperror.HTTPStatus(err), apperror.Envelope(err))
}

// actor extracts the authenticated operator and tenant from the JWT claims.
func actor(c *gin.Context) (userID, tenantID uuid.UUID, ok bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apperror.New("authentication required"))
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, apperror.New("invalid token subject"))
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, err = claims.TenantUUID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, apperror.New("invalid token tenant"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, tenantID, true
}

// pathUUID parses a path parameter as UUID, writing the 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
