package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/middleware"
	"github.com/lorahealth/lora/backend/internal/models"
)

// RegisterValidators installs the custom binding tags on gin's validator and
// reports field names by their JSON tag. Call once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("sample_kind", func(fl validator.FieldLevel) bool {
		return models.SampleKind(fl.Field().String()).IsValid()
	}); err != nil {
		return fmt.Errorf("failed to register sample_kind validator: %w", err)
	}
	return nil
}

// requireUser returns the authenticated user ID or writes a 401 problem
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
		return "", false
	}
	return userID, true
}
