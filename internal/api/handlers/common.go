package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// errJSON writes the envelope every handler in this package uses for
// failures, matching the teacher's {success,error:{code,message}} shape.
func errJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// requestingUserID reads the caller's user id off an X-User-Id header.
// Authentication and JWT issuance are out of scope here (spec.md §1), so
// this is the minimal attribution hook the collaborator's auth layer is
// expected to populate; an absent or malformed header attributes the job
// to user 0.
func requestingUserID(c *fiber.Ctx) int64 {
	id, err := strconv.ParseInt(c.Get("X-User-Id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
