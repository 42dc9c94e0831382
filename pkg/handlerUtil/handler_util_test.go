package handlerUtil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"frontdesk/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThingNotFound = response.NewError(fiber.StatusNotFound, "thing not found")

func run(t *testing.T, h fiber.Handler) (int, map[string]interface{}) {
	t.Helper()

	app := fiber.New()
	app.Get("/", h)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestHandleResponseError(t *testing.T) {
	eh := New(logrus.New())

	status, body := run(t, func(c *fiber.Ctx) error {
		return eh.Handle(c, "req-1", fmt.Errorf("lookup: %w", errThingNotFound), "/", "get_thing")
	})

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "thing not found", body["error"])
	assert.Equal(t, "THING_NOT_FOUND", body["code"])
}

func TestHandleUnexpectedError(t *testing.T) {
	eh := New(logrus.New())

	status, body := run(t, func(c *fiber.Ctx) error {
		return eh.Handle(c, "req-1", errors.New("boom"), "/", "get_thing")
	})

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "An unexpected error occurred", body["error"])
}

func TestHandleWithBodyMergesExtra(t *testing.T) {
	eh := New(logrus.New())

	status, body := run(t, func(c *fiber.Ctx) error {
		return eh.HandleWithBody(c, "req-1", response.NewError(fiber.StatusServiceUnavailable, "escalation failed"), "/", "utterance", fiber.Map{
			"reply": "hold on",
		})
	})

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "ESCALATION_FAILED", body["code"])
	assert.Equal(t, "hold on", body["reply"])
}

func TestHandleFiberError(t *testing.T) {
	eh := New(logrus.New())

	status, body := run(t, func(c *fiber.Ctx) error {
		return eh.Handle(c, "req-1", fiber.ErrUnprocessableEntity, "/", "parse_request_body")
	})

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "HTTP_ERROR", body["code"])
}
