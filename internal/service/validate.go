package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	// bcrypt rejects inputs longer than 72 bytes.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 72
	})
	return v
}

// messages maps "field.tag" to the text shown to the client.
var messages = map[string]string{
	"email.required":     "Email is required",
	"email.email":        "Invalid email address",
	"email.max":          "Email must be at most 100 characters",
	"username.required":  "Username is required",
	"username.username":  "Username must start with a letter and contain only letters and numbers",
	"username.max":       "Username must be at most 50 characters",
	"password.min":       "Password must be at least 6 characters long",
	"password.bcryptlen": "Password must be at most 72 bytes",
	"category.required":  "Category is required",
	"category.max":       "Category must be at most 50 characters",
	"description.max":    "Description must be at most 255 characters",
	"amount.required":    "Amount is required",
	"date.required":      "Date is required",
}

// check runs the struct rules on in and folds failures into ve.
func check(in any, ve *ValidationError) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		ve.Add(fe.Field(), msg)
	}
	return nil
}
