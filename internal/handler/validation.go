package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/MentalSpaceTherapy1/mentalspace-ehr-v2-sub015/internal/model"
)

// RegisterValidations installs custom binding validators. "clock" accepts
// the "HH:MM" strings used for slot boundaries.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := model.MinutesOfDay(fl.Field().String())
			return err == nil
		})
	}
}
