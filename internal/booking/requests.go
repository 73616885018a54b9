package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RoomRequest carries the room booking form fields as submitted.
type RoomRequest struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Phone    string `form:"phone" validate:"required"`
	CheckIn  string `form:"check_in" validate:"required"`
	CheckOut string `form:"check_out" validate:"required"`
	Members  string `form:"members" validate:"required"`
	RoomType string `form:"room_type" validate:"required"`
}

// VehicleRequest carries the vehicle rental form fields as submitted.
type VehicleRequest struct {
	Name     string `form:"name" validate:"required"`
	Age      string `form:"age" validate:"required"`
	BikeName string `form:"bikeName" validate:"required"`
	Date     string `form:"date" validate:"required"`
	Days     string `form:"days" validate:"required"`
}

// Result is returned for a confirmed booking.
type Result struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	BookingID   int64  `json:"booking_id"`
	TotalAmount int64  `json:"total_amount"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validationMessage turns validator output into one sentence per field.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}
