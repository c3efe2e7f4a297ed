package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("weekdays", validateWeekdays); err != nil {
		log.Fatal("Failed to register 'weekdays' validator",
			"error", err,
		)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// validateWeekdays accepts an empty list or distinct weekdays in 0..6.
func validateWeekdays(fl validator.FieldLevel) bool {
	days, ok := fl.Field().Interface().([]time.Weekday)
	if !ok {
		return false
	}

	seen := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	if err := v.check(req); err != nil {
		return err
	}

	checkIn, _ := model.ParseDay(req.CheckIn)
	checkOut, _ := model.ParseDay(req.CheckOut)
	if !checkOut.After(checkIn) {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckOut",
				Message: "check_out must be after check_in",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateCancel(req *model.CancelBookingRequest) error {
	return v.check(req)
}

func (v *BookingValidator) ValidateManualBlock(req *model.ManualBlockRequest) error {
	if err := v.check(req); err != nil {
		return err
	}

	start, _ := model.ParseDay(req.Start)
	end, _ := model.ParseDay(req.End)
	if !end.After(start) {
		return ValidationErrors{
			ValidationError{
				Field:   "End",
				Message: "end must be after start",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidatePaymentOutcome(outcome *model.PaymentOutcome) error {
	return v.check(outcome)
}

func (v *BookingValidator) ValidateProperty(property *model.Property) error {
	return v.check(property)
}

func (v *BookingValidator) ValidateSettings(settings *model.CalendarSettings) error {
	return v.check(settings)
}

func (v *BookingValidator) ValidateSeasonalRate(rate *model.SeasonalRate) error {
	if err := v.check(rate); err != nil {
		return err
	}

	if err := rate.Range.Validate(); err != nil {
		return ValidationErrors{
			ValidationError{
				Field:   "Range",
				Message: err.Error(),
			},
		}
	}

	if rate.MaxNights > 0 && rate.MaxNights < rate.MinNights {
		return ValidationErrors{
			ValidationError{
				Field:   "MaxNights",
				Message: fmt.Sprintf("max_nights (%d) must not be below min_nights (%d)", rate.MaxNights, rate.MinNights),
			},
		}
	}

	return nil
}

func (v *BookingValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "hexcolor":
			message = fmt.Sprintf("%s must be a hex color (e.g., #FF8800)", err.Field())
		case "timezone":
			message = fmt.Sprintf("%s must be an IANA time zone", err.Field())
		case "weekdays":
			message = fmt.Sprintf("%s must list distinct weekdays between 0 (Sunday) and 6 (Saturday)", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
