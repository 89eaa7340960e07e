//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: hello\nmembership: \"from %s until %s\""))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "hello" {
			t.Errorf("wanted 'hello', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
		if translator.Has("nonexistent_key") {
			t.Error("Has should be false for a missing key")
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("membership", "2024-01-01", "2024-03-31")
		if want := "from 2024-01-01 until 2024-03-31"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestNewTranslatorFromFS(t *testing.T) {
	fsys := fstest.MapFS{"locales/de.yaml": {Data: []byte("status.success.title: Zahlung erfolgreich")}}
	tr, err := NewTranslator(fsys, "de")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	if got := tr.T("status.success.title"); got != "Zahlung erfolgreich" {
		t.Errorf("unexpected translation %q", got)
	}
	if _, err := NewTranslator(fsys, "fr"); err == nil {
		t.Error("expected an error for a missing locale")
	}
}

func TestEmbeddedEnglishCoversReasons(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	for _, key := range []string{
		"status.success.title", "status.failed.title", "status.pending.title",
		"reason.payment_declined", "reason.invalid_callback", "reason.unknown_transaction",
		"reason.not_confirmed", "reason.gateway_unavailable", "reason.internal_error",
	} {
		if !tr.Has(key) {
			t.Errorf("missing translation for %s", key)
		}
	}
}
