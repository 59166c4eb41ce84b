package middleware

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// warehouseCodePattern matches SAP B1 warehouse codes: up to 8 characters,
// uppercase letters, digits, dash or underscore
var warehouseCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,7}$`)

// SetupValidator configures the binding validator with custom tags
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("warehouse_code", func(fl validator.FieldLevel) bool {
		return warehouseCodePattern.MatchString(fl.Field().String())
	})
}
