package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"tripadmin/internal/middleware"
	"tripadmin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// report json field names in validation messages
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	}
}

// bindJSON binds and validates the body, writing a 400 envelope naming the first failing field.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) && len(validationErr) > 0 {
		response.BadRequest(c, validationMessage(validationErr[0]))
		return false
	}
	response.BadRequest(c, "Invalid request body: "+err.Error())
	return false
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid ID format")
		return 0, false
	}
	return uint(id), true
}

// actorID is the authenticated user performing the request, 0 when unknown
func actorID(c *gin.Context) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}
