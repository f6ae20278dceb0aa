package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingDateRange  = errors.New("missing date range: select both start and end dates")
	ErrInvalidDateRange  = errors.New("invalid date range: end date is before start date")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrUnknownCity       = errors.New("unknown city")
	ErrNoCities          = errors.New("no cities configured")
	ErrSeriesMisaligned  = errors.New("archive series does not match requested dates")
)

// IsRequestError reports whether err was caused by caller input rather
// than the archive.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrMissingDateRange) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrUnknownCity)
}

// translateValidation maps validator failures onto the package errors.
// Date problems win over coordinate problems.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Start", "End":
			if fe.Tag() == "required" {
				return ErrMissingDateRange
			}
			return ErrInvalidDateRange
		}
	}
	fe := verrs[0]
	return fmt.Errorf("%w: %s=%v", ErrInvalidCoordinate, strings.ToLower(fe.StructField()), fe.Value())
}
