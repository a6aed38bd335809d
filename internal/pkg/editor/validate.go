package editor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// checkStruct validates v and translates the first failure to Dutch.
func checkStruct(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: "Ongeldige invoer"}
	}
	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	return &ValidationError{Field: field, Message: dutchMessage(field, fe)}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func dutchMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is verplicht", field)
	case "url":
		return fmt.Sprintf("%s moet een geldige URL zijn", field)
	case "email":
		return fmt.Sprintf("%s moet een geldig e-mailadres zijn", field)
	case "hexcolor":
		return fmt.Sprintf("%s moet een geldige kleurcode zijn, bijvoorbeeld #FF0000", field)
	case "max":
		return fmt.Sprintf("%s mag maximaal %s tekens bevatten", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s moet minimaal %s tekens bevatten", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s moet een van de volgende waarden zijn: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s moet een geldige datum zijn (JJJJ-MM-DD)", field)
	default:
		return fmt.Sprintf("%s is ongeldig", field)
	}
}
