package serverutils

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Get("/", JwtMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string))
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", 401},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"user_id": "u1"}), 401},
		{"no user claim", "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "u1"}), 401},
		{"valid", "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"user_id": "u1"}), 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, res.StatusCode)
			if tt.code == 200 {
				body, _ := io.ReadAll(res.Body)
				assert.Equal(t, "u1", string(body))
			}
		})
	}
}
