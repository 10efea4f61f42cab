package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator(v *validator.Validate) *CustomValidator {
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterCustomValidations регистрирует кастомные правила валидации
// в переданном экземпляре валидатора.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("phone_number", isPhoneNumber); err != nil {
		return err
	}
	if err := v.RegisterValidation("condition_code", isConditionCode); err != nil {
		return err
	}
	return nil
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	re := regexp.MustCompile(`^\+?\d{9,15}$`)
	return re.MatchString(fl.Field().String())
}

// Коды состояний trade-in: LIKE_NEW, GOOD и т.п.
func isConditionCode(fl validator.FieldLevel) bool {
	re := regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,31}$`)
	return re.MatchString(fl.Field().String())
}
