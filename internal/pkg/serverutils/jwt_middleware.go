package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JwtMiddleware only identifies the caller: it verifies an HS256 bearer token and puts
// its user_id claim into ctx.Locals("user_id"). Token issuance lives elsewhere.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}
		userID, _ := claims["user_id"].(string)
		if _, err := uuid.Parse(userID); err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}

		ctx.Locals("user_id", userID)
		return ctx.Next()
	}
}

var ErrNoUser = errors.New("no authenticated user")

// UserID reads the id stored by JwtMiddleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return UserIDFromLocals(ctx.Locals("user_id"))
}

func UserIDFromLocals(v interface{}) (uuid.UUID, error) {
	raw, ok := v.(string)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	return uuid.Parse(raw)
}
