package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/example/medilink/internal/application"
	transport "github.com/example/medilink/internal/http"
)

// startTestServer wires the handler behind a middleware that injects the
// given principal, mirroring the session gate in front of the real endpoint.
func startTestServer(t *testing.T, registry *Registry, principal *application.Principal) *httptest.Server {
	t.Helper()

	handler := NewHandler(registry, nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if principal != nil {
			r = r.WithContext(transport.ContextWithPrincipal(r.Context(), *principal))
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, ctx context.Context, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	return conn
}

func TestHandler_JoinAndReceive(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registry := NewRegistry(nil)
	principal := application.Principal{IdentityID: "provider-1", Role: application.RoleProvider}
	server := startTestServer(t, registry, &principal)

	conn := dial(t, ctx, server)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	if err := wsjson.Write(ctx, conn, clientMessage{Event: eventJoinProviderRoom, ProviderID: "provider-1"}); err != nil {
		t.Fatalf("failed to send join: %v", err)
	}

	var joined serverMessage
	if err := wsjson.Read(ctx, conn, &joined); err != nil {
		t.Fatalf("failed to read join ack: %v", err)
	}
	if joined.Event != eventJoined || joined.ProviderID != "provider-1" {
		t.Fatalf("unexpected join ack: %+v", joined)
	}

	// The registry registers the binding before the ack is written, so the
	// connection is already eligible for delivery here.
	alert := application.Alert{ID: "alert-1", ProviderID: "provider-1", PatientID: "patient-1", Message: "Critical patient case detected"}
	if err := registry.Deliver(ctx, "provider-1", alert); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	var pushed serverMessage
	if err := wsjson.Read(ctx, conn, &pushed); err != nil {
		t.Fatalf("failed to read alert frame: %v", err)
	}
	if pushed.Event != eventNewAlert || pushed.Alert == nil || pushed.Alert.ID != "alert-1" {
		t.Fatalf("unexpected alert frame: %+v", pushed)
	}
}

func TestHandler_RejectsForeignRoom(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registry := NewRegistry(nil)
	principal := application.Principal{IdentityID: "provider-1", Role: application.RoleProvider}
	server := startTestServer(t, registry, &principal)

	conn := dial(t, ctx, server)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	if err := wsjson.Write(ctx, conn, clientMessage{Event: eventJoinProviderRoom, ProviderID: "provider-2"}); err != nil {
		t.Fatalf("failed to send join: %v", err)
	}

	var reply serverMessage
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("failed to read rejection: %v", err)
	}
	if reply.Event != eventError || reply.ErrorCode != "room_access_denied" {
		t.Fatalf("unexpected rejection frame: %+v", reply)
	}
	if got := registry.Connections("provider-2"); got != 0 {
		t.Fatalf("expected no binding after rejection, got %d", got)
	}
}

func TestHandler_RejectsNonProvider(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registry := NewRegistry(nil)
	principal := application.Principal{IdentityID: "patient-1", Role: application.RolePatient}
	server := startTestServer(t, registry, &principal)

	conn := dial(t, ctx, server)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	if err := wsjson.Write(ctx, conn, clientMessage{Event: eventJoinProviderRoom, ProviderID: "patient-1"}); err != nil {
		t.Fatalf("failed to send join: %v", err)
	}

	var reply serverMessage
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("failed to read rejection: %v", err)
	}
	if reply.Event != eventError || reply.ErrorCode != "room_access_denied" {
		t.Fatalf("unexpected rejection frame: %+v", reply)
	}
}

func TestHandler_RequiresPrincipal(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	server := startTestServer(t, registry, nil)

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHandler_RejectsUnknownFirstEvent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registry := NewRegistry(nil)
	principal := application.Principal{IdentityID: "provider-1", Role: application.RoleProvider}
	server := startTestServer(t, registry, &principal)

	conn := dial(t, ctx, server)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	if err := wsjson.Write(ctx, conn, clientMessage{Event: "ping"}); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	var reply serverMessage
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("failed to read rejection: %v", err)
	}
	if reply.Event != eventError || reply.ErrorCode != "bad_request" {
		t.Fatalf("unexpected rejection frame: %+v", reply)
	}
}
