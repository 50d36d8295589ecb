package gateway

import (
	"sync"
	"testing"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()

	if s.IsAuthenticated() {
		t.Fatal("new session must start unauthenticated")
	}
	if _, ok := s.CurrentToken(); ok {
		t.Fatal("new session must hold no token")
	}

	s.SetToken("abc123")
	if !s.IsAuthenticated() {
		t.Fatal("expected authenticated after SetToken")
	}
	token, ok := s.CurrentToken()
	if !ok || token != "abc123" {
		t.Fatalf("expected token abc123, got %q (ok=%v)", token, ok)
	}

	s.SetToken("def456")
	token, _ = s.CurrentToken()
	if token != "def456" {
		t.Fatalf("expected replaced token def456, got %q", token)
	}

	s.ClearToken()
	if s.IsAuthenticated() {
		t.Fatal("expected unauthenticated after ClearToken")
	}
}

func TestSession_ConcurrentReplace(t *testing.T) {
	s := NewSession()
	s.SetToken("initial")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetToken("replacement")
		}()
		go func() {
			defer wg.Done()
			// A reader must always observe a complete value.
			if token, ok := s.CurrentToken(); ok && token != "initial" && token != "replacement" {
				t.Errorf("observed torn token %q", token)
			}
		}()
	}
	wg.Wait()
}
