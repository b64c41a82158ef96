package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msg := fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag())
		fields[fe.Field()] = fe.Tag()
		messages = append(messages, msg)
	}

	return &ValidationError{
		Message: strings.Join(messages, "; "),
		Fields:  fields,
	}
}
