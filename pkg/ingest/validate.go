package ingest

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// integrityFromValidation turns the first validator failure into a
// DataIntegrityError for the given record.
func integrityFromValidation(source, record string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return perrors.Integrity(source, record, "", err.Error())
	}
	fe := fieldErrs[0]
	reason := "missing"
	if fe.Tag() != "required" {
		reason = "failed " + fe.Tag() + " check"
	}
	return perrors.Integrity(source, record, fe.Field(), reason)
}
