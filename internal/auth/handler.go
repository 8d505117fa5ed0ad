package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
}

// Seeder prepares per-user data (default categories) after signup.
type Seeder interface {
	SeedDefaults(ctx context.Context, userID string) error
}

type Handler struct {
	Store  UserStore
	Issuer *Issuer
	Seeder Seeder
	Log    *log.Logger
}

func NewHandler(store UserStore, issuer *Issuer, seeder Seeder, logger *log.Logger) *Handler {
	return &Handler{Store: store, Issuer: issuer, Seeder: seeder, Log: logger}
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	var body signupRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password required")
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}
	if len(body.Password) < minPasswordLength {
		return fiber.NewError(fiber.StatusBadRequest, "password must have at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}

	ctx := Context(c)
	user, err := h.Store.CreateUser(ctx, body.Email, string(hashed), strings.TrimSpace(body.FullName))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return fiber.NewError(fiber.StatusConflict, "email already registered")
		}
		h.Log.Error("could not create user", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
	}

	if h.Seeder != nil {
		if err := h.Seeder.SeedDefaults(ctx, user.ID); err != nil {
			h.Log.Warn("seeding default categories failed", "user_id", user.ID, "error", err)
		}
	}

	token, err := h.Issuer.Sign(user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, err := h.Store.FindByEmail(Context(c), body.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.Log.Error("login lookup failed", "error", err)
		}
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := h.Issuer.Sign(user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}

	return c.JSON(authResponse{Token: token, User: user})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := UserID(c)
	if err != nil {
		return err
	}

	user, err := h.Store.GetByID(Context(c), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load user")
	}
	return c.JSON(user)
}
