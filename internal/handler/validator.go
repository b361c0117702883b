package handler

import "github.com/go-playground/validator/v10"

// Validator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator ready to be assigned to
// echo.Echo.Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate runs struct-tag validation on i.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}
