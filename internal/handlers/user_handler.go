package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"userapi/internal/apperrors"
	"userapi/internal/models"
	"userapi/internal/services"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler. The validator enforces the
// shape-level constraints declared on models.User: emailfmt uses the
// configured email pattern, phonefmt the fixed phone pattern, and pastdate
// requires a birth date strictly before today.
func NewUserHandler(service *services.UserService, emailRegex *regexp.Regexp) *UserHandler {
	phoneRegex := regexp.MustCompile(services.PhoneNumberPattern)

	validate := validator.New()
	// Expose models.Date to the validator as its underlying time.Time so
	// "required" sees the zero time and custom checks get a plain value.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if date, ok := field.Interface().(models.Date); ok {
			return date.Time
		}
		return nil
	}, models.Date{})
	validate.RegisterValidation("emailfmt", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("phonefmt", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		date, ok := fl.Field().Interface().(time.Time)
		if !ok || date.IsZero() {
			return false
		}
		// Compare calendar dates so a birth date of today is rejected even
		// though the parsed value is midnight and the clock is past it.
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return date.Before(today)
	})

	return &UserHandler{
		service:  service,
		validate: validate,
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleGetUsers)
	// Registered before /:email so "dateRange" is not captured as an email.
	userRoutes.Get("/dateRange", h.HandleSearchUsersByBirthDateRange)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Put("/:email", h.HandleUpdateUser)
	userRoutes.Patch("/:email", h.HandleUpdateUserField)
	userRoutes.Delete("/:email", h.HandleDeleteUser)
}

// HandleGetUsers retrieves all users.
//
// @Summary Get all users
// @Produce json
// @Success 200 {array} models.User
// @Failure 404 {object} map[string]string
// @Router  /users [get]
func (h *UserHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.service.FindAll()
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(users)
}

// HandleCreateUser creates a new user.
//
// @Summary Create a user
// @Accept  json
// @Produce json
// @Param   input body models.User true "User to create"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Router  /users [post]
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(user); err != nil {
		return h.validationResponse(c, err)
	}

	created, err := h.service.CreateUser(&user)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdateUser overwrites every field of the user at the path email.
//
// @Summary Update a user
// @Accept  json
// @Produce json
// @Param   email path string true "Current email of the user"
// @Param   input body models.User true "Replacement record"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router  /users/{email} [put]
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	email := c.Params("email")

	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(user); err != nil {
		return h.validationResponse(c, err)
	}

	updated, err := h.service.UpdateUser(email, &user)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(updated)
}

// HandleUpdateUserField updates a single field of the user at the path email.
// The field name comes from the "field" query parameter; the body carries the
// new value, either bare or as a JSON-encoded string.
//
// @Summary Partially update a user
// @Accept  json
// @Produce json
// @Param   email path string true "Current email of the user"
// @Param   field query string true "Field to update"
// @Param   value body string true "New value"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router  /users/{email} [patch]
func (h *UserHandler) HandleUpdateUserField(c *fiber.Ctx) error {
	email := c.Params("email")
	field := c.Query("field")

	value := string(c.Body())
	var quoted string
	if err := json.Unmarshal(c.Body(), &quoted); err == nil {
		value = quoted
	}

	updated, err := h.service.UpdateUserField(email, field, value)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(updated)
}

// HandleDeleteUser deletes the user at the path email.
//
// @Summary Delete a user
// @Param   email path string true "Email of the user"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router  /users/{email} [delete]
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	email := c.Params("email")
	if err := h.service.DeleteUser(email); err != nil {
		return h.errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSearchUsersByBirthDateRange returns users whose birth date falls
// within the inclusive [from, to] range.
//
// @Summary Search users by birth date range
// @Produce json
// @Param   from query string true "Range start (yyyy-mm-dd)"
// @Param   to   query string true "Range end (yyyy-mm-dd)"
// @Success 200 {array} models.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router  /users/dateRange [get]
func (h *UserHandler) HandleSearchUsersByBirthDateRange(c *fiber.Ctx) error {
	fromDate, err := models.ParseDate(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    apperrors.CodeInvalidDate,
			"message": "query parameter 'from' must be a yyyy-mm-dd date",
		})
	}
	toDate, err := models.ParseDate(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    apperrors.CodeInvalidDate,
			"message": "query parameter 'to' must be a yyyy-mm-dd date",
		})
	}

	users, err := h.service.SearchUsersByBirthDateRange(fromDate, toDate)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(users)
}

// validationResponse turns a struct validation failure into the 400 response,
// with one message per offending field.
func (h *UserHandler) validationResponse(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// errorResponse maps a service failure onto its HTTP response: business
// errors carry their own status hint and reason code, anything else is a 500.
func (h *UserHandler) errorResponse(c *fiber.Ctx, err error) error {
	var apiErr *apperrors.Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(fiber.Map{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	}
	log.Printf("Unexpected error handling %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
