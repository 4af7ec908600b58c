package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/darelhouma/api/internal/domain"
	"github.com/darelhouma/api/internal/service"
)

var errInvalidBody = domain.NewError(domain.ErrInvalidInput, "invalid request body")

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required,min=2"`
	Phone       string `json:"phone" validate:"required,min=9"`
	CountryCode string `json:"country_code"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userSummary struct {
	ID       string          `json:"id"`
	Email    string          `json:"email"`
	FullName string          `json:"full_name,omitempty"`
	Profile  *domain.Profile `json:"profile,omitempty"`
}

// bindAndValidate decodes the JSON body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidBody
	}
	return c.Validate(req)
}

// Register creates an account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user": userSummary{
			ID:       user.ID,
			Email:    user.Email,
			FullName: req.FullName,
		},
	})
}

// Login signs in with email and password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "login successful",
		"session": result.Session,
		"user": userSummary{
			ID:      result.User.ID,
			Email:   result.User.Email,
			Profile: result.Profile,
		},
	})
}

// Refresh exchanges a refresh token for a new session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	session, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"session": session})
}

// Logout revokes the caller's session.
func (h *AuthHandler) Logout(c echo.Context, id domain.Identity) error {
	if err := h.auth.Logout(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context, id domain.Identity) error {
	profile, err := h.auth.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"profile": profile})
}

// APIProfile echoes the provider's view of the caller.
func (h *AuthHandler) APIProfile(c echo.Context, id domain.Identity) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "access granted",
		"user":    id.User,
	})
}
