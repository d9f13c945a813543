package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
	"github.com/ManuelReschke/FormFox/internal/testutil"
)

func newTestReprocessor(store *testutil.MemStore) *assignment.Reprocessor {
	repos := store.Repositories()
	return assignment.NewReprocessor(
		repos.Submission,
		assignment.NewEngine(nil),
		assignment.NewMaterializer(repos.Template, repos.Assignment, nil),
		audit.NewRepositorySink(repos.AuditLog),
		nil,
	)
}

func jsonRequest(method, target string, body any) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

// do runs req against app and decodes a JSON response body into a map.
func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}
