package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSanitizeBodyRedactsSecrets(t *testing.T) {
	body := []byte(`{"email":"host@example.com","password":"hunter2hunter2","payment_key":"pay_abc","note":"hi"}`)

	out := sanitizeBody(body, "application/json")
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map summary, got %T", out)
	}
	if m["password"] != "redacted" {
		t.Fatalf("password not redacted: %v", m["password"])
	}
	if m["payment_key"] != "redacted" {
		t.Fatalf("payment_key not redacted: %v", m["payment_key"])
	}
	if m["email"] != "host@example.com" {
		t.Fatalf("email should pass through, got %v", m["email"])
	}
}

func TestSanitizeBodyBinary(t *testing.T) {
	if out := sanitizeBody([]byte{0xff, 0xfe, 0x00, 0x12}, "application/octet-stream"); out != "binary" {
		t.Fatalf("expected binary marker, got %v", out)
	}
}

func TestReorderRequestBinding(t *testing.T) {
	e := echo.New()

	t.Run("order pairs", func(t *testing.T) {
		payload := `{"orders":[{"id":"7b45e2ce-55a8-4b3f-9c04-0b6e1f6f3f10","order_index":2}]}`
		req := httptest.NewRequest(http.MethodPut, "/api/v1/guidebooks/x/blocks/reorder", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c := e.NewContext(req, httptest.NewRecorder())

		var parsed reorderRequest
		if err := c.Bind(&parsed); err != nil {
			t.Fatalf("bind: %v", err)
		}
		if len(parsed.Orders) != 1 || parsed.Orders[0].OrderIndex != 2 {
			t.Fatalf("unexpected orders: %+v", parsed.Orders)
		}
		if len(parsed.BlockIDs) != 0 {
			t.Fatalf("block_ids should be empty, got %v", parsed.BlockIDs)
		}
	})

	t.Run("id list shorthand", func(t *testing.T) {
		payload := `{"block_ids":["7b45e2ce-55a8-4b3f-9c04-0b6e1f6f3f10","c5cbb9ad-3fb0-4a92-9d2e-52a8f8f5b841"]}`
		req := httptest.NewRequest(http.MethodPut, "/api/v1/guidebooks/x/blocks/reorder", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c := e.NewContext(req, httptest.NewRecorder())

		var parsed reorderRequest
		if err := c.Bind(&parsed); err != nil {
			t.Fatalf("bind: %v", err)
		}
		if len(parsed.BlockIDs) != 2 {
			t.Fatalf("expected 2 block ids, got %d", len(parsed.BlockIDs))
		}
	})
}

func TestParseIDParam(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("  7b45e2ce-55a8-4b3f-9c04-0b6e1f6f3f10  ")

	id, err := parseIDParam(c, "id")
	if err != nil {
		t.Fatalf("parseIDParam: %v", err)
	}
	if id.String() != "7b45e2ce-55a8-4b3f-9c04-0b6e1f6f3f10" {
		t.Fatalf("unexpected id %s", id)
	}

	c.SetParamValues("not-a-uuid")
	if _, err := parseIDParam(c, "id"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}

func TestSanitizeBodyClampsLongText(t *testing.T) {
	long := strings.Repeat("a", maxLoggedBody+100)
	out := sanitizeBody([]byte(`{"note":"`+long+`"}`), "application/json")
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	if !strings.Contains(string(raw), "...(truncated)") {
		t.Fatal("expected truncation marker in long field")
	}
}
