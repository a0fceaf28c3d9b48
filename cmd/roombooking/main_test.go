package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/testfixtures"
)

const catalogYAML = `rooms:
  - id: sala-02
    name: Sala 02
    capacity: 4
    resources: [TV]
  - id: sala-04
    name: Sala 04
    capacity: 12
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rooms.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("BOOKING_TOKEN_SECRET", "main-test-secret")
	t.Setenv("BOOKING_STORE", "memory")
	cfg, err := config.LoadWithArgs(nil)
	if err != nil {
		t.Fatalf("config.LoadWithArgs failed: %v", err)
	}
	cfg.RoomsFile = writeCatalog(t)
	return cfg
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := testfixtures.QuietLogger()

	t.Run("memory", func(t *testing.T) {
		store, err := openStore(ctx, config.Config{Store: config.StoreMemory}, logger)
		if err != nil {
			t.Fatalf("expected memory store, got %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Config{Store: config.StoreSQLite, SQLiteDSN: filepath.Join(t.TempDir(), "booking.db")}
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			t.Fatalf("expected sqlite store, got %v", err)
		}
		defer store.Close()
		if _, err := store.ListRooms(ctx); err != nil {
			t.Fatalf("expected migrated schema, got %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := openStore(ctx, config.Config{Store: "mongo"}, logger); err == nil {
			t.Fatalf("expected error for unsupported store")
		}
	})
}

func TestSeedRooms(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if err := seedRooms(ctx, config.Config{}, store, testfixtures.QuietLogger()); err != nil {
		t.Fatalf("expected no-op without catalog, got %v", err)
	}
	if rooms, _ := store.ListRooms(ctx); len(rooms) != 0 {
		t.Fatalf("expected no rooms, got %d", len(rooms))
	}

	cfg := config.Config{RoomsFile: writeCatalog(t)}
	if err := seedRooms(ctx, cfg, store, testfixtures.QuietLogger()); err != nil {
		t.Fatalf("seedRooms failed: %v", err)
	}
	rooms, err := store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "sala-02" || rooms[1].Capacity != 12 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	cfg.RoomsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := seedRooms(ctx, cfg, store, testfixtures.QuietLogger()); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestBuildHandler_BookAndRespond(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	store := memory.New()
	if err := seedRooms(ctx, cfg, store, testfixtures.QuietLogger()); err != nil {
		t.Fatalf("seedRooms failed: %v", err)
	}
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	dispatcher := &testfixtures.RecordingDispatcher{}

	handler, err := buildHandler(cfg, store, dispatcher, clock.Now, testfixtures.QuietLogger())
	if err != nil {
		t.Fatalf("buildHandler failed: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"title":     "Planning",
		"room_id":   "sala-02",
		"start":     testfixtures.At(14, 0),
		"end":       testfixtures.At(15, 0),
		"attendees": []map[string]string{{"email": "Alice@Example.com"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/meetings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httptransport.HeaderUserID, "user-1")
	req.Header.Set(httptransport.HeaderUserEmail, "owner@example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Meeting struct {
			ID string `json:"id"`
		} `json:"meeting"`
		Invitations []struct {
			Email string `json:"email"`
			Link  string `json:"link"`
		} `json:"invitations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(created.Invitations) != 1 {
		t.Fatalf("expected 1 invitation, got %d", len(created.Invitations))
	}
	link := created.Invitations[0].Link
	if !strings.HasPrefix(link, "http://localhost:5173/meeting-response?token=") {
		t.Fatalf("unexpected invitation link %q", link)
	}
	if got := dispatcher.Events(notify.KindInvited); len(got) != 1 || got[0].ResponseLink != link {
		t.Fatalf("expected one invited event carrying the link, got %+v", got)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid link: %v", err)
	}
	form := url.Values{"token": {parsed.Query().Get("token")}, "response": {"accept"}}
	req = httptest.NewRequest(http.MethodPost, "/api/meeting-confirmation/respond", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from respond, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := dispatcher.Events(notify.KindResponded); len(got) != 1 {
		t.Fatalf("expected one responded event, got %d", len(got))
	}
}

func TestBuildHandler_RejectsWeakSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenSecret = ""
	if _, err := buildHandler(cfg, memory.New(), &testfixtures.RecordingDispatcher{}, testfixtures.NewClock(testfixtures.ReferenceTime()).Now, testfixtures.QuietLogger()); err == nil {
		t.Fatalf("expected error for empty token secret")
	}
}

func TestRun_Help(t *testing.T) {
	t.Setenv("BOOKING_TOKEN_SECRET", "main-test-secret")
	err := run(context.Background(), []string{"--help"}, &bytes.Buffer{})
	if !errors.Is(err, config.ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
}
