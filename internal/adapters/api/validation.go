package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"weatherdash.app/internal/core/dashboard"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// registerValidators adds the custom binding tags to gin's validator
func registerValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		validatorsErr = v.RegisterValidation("panel_kind", func(fl validator.FieldLevel) bool {
			return dashboard.PanelKind(fl.Field().String()).IsValid()
		})
	})
	return validatorsErr
}
