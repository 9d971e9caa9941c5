package desk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
)

var (
	testLoc  = time.FixedZone("Asia/Ho_Chi_Minh", 7*3600)
	testCred = roster.Credential{AppAuthToken: "a", Authorization: "b", APIKey: "c"}
)

type directory map[int64]roster.User

func (d directory) Get(id int64) (roster.User, bool) {
	u, ok := d[id]
	return u, ok
}

func newTestClient(t *testing.T, handler func(body map[string]any, w http.ResponseWriter)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		handler(body, w)
	}))
	t.Cleanup(server.Close)
	gateway, errNew := remote.NewClient(remote.Options{BaseURL: server.URL})
	if errNew != nil {
		t.Fatalf("new client: %v", errNew)
	}
	users := directory{7: roster.NewUser(7, "Jane Doe", "", testCred)}
	return NewClient(gateway, users, Options{LocatorNode: 13, Location: testLoc})
}

func TestListDesksMapsStatuses(t *testing.T) {
	client := newTestClient(t, func(body map[string]any, w http.ResponseWriter) {
		if body["discriminator"] != "WKSP" || body["sysidLocatorNode"] != float64(13) {
			t.Errorf("unexpected query %v", body)
		}
		if _, ok := body["sysidResources"]; ok {
			t.Errorf("expected no desk filter, got %v", body["sysidResources"])
		}
		_, _ = w.Write([]byte(`{"views":[
			{"status":1,"roomView":{"sysidResource":1,"name":"W.1.2","locationName":"Floor 1"}},
			{"status":5,"roomView":{"sysidResource":2,"name":"W.1.1","locationName":"Floor 1"},"reservationName":"John",
			 "startTime":{"hour":8,"minute":0},"endTime":{"hour":17,"minute":30}},
			{"status":99,"roomView":{"sysidResource":3,"name":"W.1.3","locationName":"Floor 1"}}
		]}`))
	})

	desks, errList := client.ListDesks(context.Background(), Query{
		UserID:     7,
		Credential: testCred,
		Date:       time.Date(2025, time.January, 6, 0, 0, 0, 0, testLoc),
		Window:     remote.FullDay(),
	})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(desks) != 3 {
		t.Fatalf("expected 3 desks, got %d", len(desks))
	}
	if desks[0].Status != StatusAvailable || desks[1].Status != StatusFullyReserved || desks[2].Status != StatusUnknown {
		t.Fatalf("unexpected statuses %+v", desks)
	}
	if desks[1].ReservedBy == nil || *desks[1].ReservedBy != "John" || *desks[1].StartTime != "08:00" || *desks[1].EndTime != "17:30" {
		t.Fatalf("unexpected reserved desk %+v", desks[1])
	}
	if desks[0].StartTime != nil || desks[0].ReservedBy != nil {
		t.Fatalf("expected no reservation fields on free desk")
	}

	SortByName(desks)
	if desks[0].Name != "W.1.1" || desks[1].Name != "W.1.2" || desks[2].Name != "W.1.3" {
		t.Fatalf("unexpected order %v %v %v", desks[0].Name, desks[1].Name, desks[2].Name)
	}
}

func TestIsAvailableFiltersDesk(t *testing.T) {
	client := newTestClient(t, func(body map[string]any, w http.ResponseWriter) {
		ids, _ := body["sysidResources"].([]any)
		if len(ids) != 1 || ids[0] != float64(42) {
			t.Errorf("expected desk filter [42], got %v", body["sysidResources"])
		}
		_, _ = w.Write([]byte(`{"views":[]}`))
	})
	ok, errAvailable := client.IsAvailable(context.Background(), Query{UserID: 7, Credential: testCred, DeskID: 42, Date: time.Now()})
	if errAvailable != nil {
		t.Fatalf("available: %v", errAvailable)
	}
	if ok {
		t.Fatal("expected empty result to count as unavailable")
	}
}

func TestBookReportsMissingFields(t *testing.T) {
	client := NewClient(nil, directory{}, Options{Location: testLoc})
	deskID := int64(42)
	errBook := client.Book(context.Background(), BookRequest{UserID: 7, DeskID: &deskID})

	var validationErr *ValidationError
	if !errors.As(errBook, &validationErr) {
		t.Fatalf("expected validation error, got %v", errBook)
	}
	want := []string{"date", "startHour", "startMinute", "endHour", "endMinute"}
	if len(validationErr.Missing) != len(want) {
		t.Fatalf("unexpected missing fields %v", validationErr.Missing)
	}
	for i, field := range want {
		if validationErr.Missing[i] != field {
			t.Fatalf("unexpected missing fields %v", validationErr.Missing)
		}
	}
	if !errors.Is(errBook, remote.ErrValidation) {
		t.Fatal("expected validation error to match remote.ErrValidation")
	}
}

func TestBookSendsEvent(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(body map[string]any, w http.ResponseWriter) {
		captured = body
		_, _ = w.Write([]byte(`{}`))
	})
	deskID := int64(42)
	start, startMinute, end, endMinute := 8, 0, 17, 0
	errBook := client.Book(context.Background(), BookRequest{
		UserID:      7,
		Credential:  testCred,
		Date:        "2025-01-06",
		DeskID:      &deskID,
		StartHour:   &start,
		StartMinute: &startMinute,
		EndHour:     &end,
		EndMinute:   &endMinute,
	})
	if errBook != nil {
		t.Fatalf("book: %v", errBook)
	}
	event, _ := captured["event"].(map[string]any)
	if event["name"] != "Jane Doe" || event["discriminator"] != "STND" {
		t.Fatalf("unexpected event %v", event)
	}
	reservations, _ := event["reservations"].([]any)
	if len(reservations) != 1 {
		t.Fatalf("expected one reservation, got %v", event["reservations"])
	}
	resv := reservations[0].(map[string]any)
	startTime := resv["aqStartTime"].(map[string]any)
	if resv["sysidResource"] != float64(42) || startTime["dayOfMonth"] != float64(6) || startTime["hour"] != float64(8) || startTime["tzIdValue"] != "Asia/Ho_Chi_Minh" {
		t.Fatalf("unexpected reservation %v", resv)
	}
}

func TestBookUnknownUser(t *testing.T) {
	client := NewClient(nil, directory{}, Options{Location: testLoc})
	deskID, zero := int64(1), 0
	errBook := client.Book(context.Background(), BookRequest{
		UserID: 3, Date: "2025-01-06", DeskID: &deskID,
		StartHour: &zero, StartMinute: &zero, EndHour: &zero, EndMinute: &zero,
	})
	if !errors.Is(errBook, remote.ErrValidation) {
		t.Fatalf("expected validation error for unknown user, got %v", errBook)
	}
}
