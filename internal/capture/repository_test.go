package capture

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sadopc/gomibako/internal/record"
)

func rec(url string) record.Request {
	return record.Request{Timestamp: time.Unix(1, 0), Method: "GET", URL: url}
}

func TestCreateKeys(t *testing.T) {
	repo := NewRepository()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := repo.Create()
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if len(key) != keyLength {
			t.Fatalf("key %q has length %d, want %d", key, len(key), keyLength)
		}
		for _, c := range key {
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
				t.Fatalf("key %q has invalid character %q", key, c)
			}
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
	if repo.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", repo.Len())
	}
}

func TestCreateCollisionExhausted(t *testing.T) {
	repo := NewRepository()
	repo.newKey = func() string { return "samesame00" }
	if _, err := repo.Create(); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(); !errors.Is(err, ErrKeyExhausted) {
		t.Fatalf("second Create() error = %v, want ErrKeyExhausted", err)
	}
}

func TestAddUnknownSession(t *testing.T) {
	repo := NewRepository()
	if err := repo.Add("missing", rec("/")); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Add() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := repo.Subscribe("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Subscribe() error = %v, want ErrSessionNotFound", err)
	}
}

func TestHistoryKeepsLastTen(t *testing.T) {
	repo := NewRepository()
	key, _ := repo.Create()
	for i := 0; i < 15; i++ {
		if err := repo.Add(key, rec(fmt.Sprintf("/%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	history, err := repo.Requests(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != DefaultHistorySize {
		t.Fatalf("history len = %d, want %d", len(history), DefaultHistorySize)
	}
	if history[0].URL != "/5" || history[9].URL != "/14" {
		t.Fatalf("history = %s .. %s, want /5 .. /14", history[0].URL, history[9].URL)
	}
}

func TestSubscribeReplaysThenStreams(t *testing.T) {
	repo := NewRepository(WithHistorySize(3))
	key, _ := repo.Create()
	repo.Add(key, rec("/a"))
	repo.Add(key, rec("/b"))

	sub, err := repo.Subscribe(key)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Cancel()

	if len(sub.History) != 2 || sub.History[0].URL != "/a" {
		t.Fatalf("unexpected history %+v", sub.History)
	}

	repo.Add(key, rec("/c"))
	select {
	case got := <-sub.C:
		if got.URL != "/c" {
			t.Fatalf("got %s, want /c", got.URL)
		}
	case <-time.After(time.Second):
		t.Fatal("no live request delivered")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	repo := NewRepository()
	key, _ := repo.Create()
	sub, err := repo.Subscribe(key)
	if err != nil {
		t.Fatal(err)
	}
	sub.Cancel()
	sub.Cancel()

	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel after Cancel")
	}
	if err := repo.Add(key, rec("/after")); err != nil {
		t.Fatalf("Add after cancel: %v", err)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	repo := NewRepository()
	key, _ := repo.Create()
	sub, err := repo.Subscribe(key)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Cancel()

	for i := 0; i < subscriberBuffer+1; i++ {
		repo.Add(key, rec("/"))
	}
	n := 0
	for range sub.C {
		n++
	}
	if n != subscriberBuffer {
		t.Fatalf("received %d before close, want %d", n, subscriberBuffer)
	}
}

func TestExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewRepository()
	repo.now = func() time.Time { return now }

	idle, _ := repo.Create()
	watched, _ := repo.Create()
	sub, _ := repo.Subscribe(watched)
	defer sub.Cancel()

	now = now.Add(2 * time.Hour)
	fresh, _ := repo.Create()

	if n := repo.Expire(now.Add(-time.Hour)); n != 1 {
		t.Fatalf("Expire() removed %d, want 1", n)
	}
	if repo.Exists(idle) {
		t.Error("idle session should be expired")
	}
	if !repo.Exists(watched) {
		t.Error("session with a subscriber should be kept")
	}
	if !repo.Exists(fresh) {
		t.Error("fresh session should be kept")
	}
}
