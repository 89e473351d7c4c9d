package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrap_DefaultsTo200(t *testing.T) {
	w := Wrap(httptest.NewRecorder())

	if w.StatusCode() != http.StatusOK {
		t.Errorf("expected default status 200, got %d", w.StatusCode())
	}
	if w.BytesWritten() != 0 {
		t.Errorf("expected 0 bytes before any write, got %d", w.BytesWritten())
	}
}

func TestWriteHeader_RecordsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.WriteHeader(http.StatusAccepted)

	if w.StatusCode() != http.StatusAccepted {
		t.Errorf("expected 202, got %d", w.StatusCode())
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected underlying writer to see 202, got %d", rec.Code)
	}
}

func TestWriteHeader_SecondCallIgnored(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusInternalServerError)

	if w.StatusCode() != http.StatusNotFound {
		t.Errorf("expected first status to win, got %d", w.StatusCode())
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected underlying code 404, got %d", rec.Code)
	}
}

func TestWrite_CountsBytesAndImplies200(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if w.StatusCode() != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", w.StatusCode())
	}
	if w.BytesWritten() != 16 {
		t.Errorf("expected 16 bytes recorded, got %d", w.BytesWritten())
	}
	if rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	if w.Unwrap() != rec {
		t.Error("expected Unwrap to return the wrapped writer")
	}
}
