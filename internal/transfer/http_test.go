package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(service *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), service)
	return router
}

func postFile(t *testing.T, router *gin.Engine, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile error: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestPublishEndpointReturnsPINAndHidesStoragePath(t *testing.T) {
	service := newTestService(newFakeStore(), newFakeBlobStore())
	router := newTestRouter(service)

	rr := postFile(t, router, "report.pdf", []byte("%PDF-1.4"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	pin, _ := resp["pin"].(string)
	if !pinPattern.MatchString(pin) {
		t.Fatalf("expected 4-digit pin in response, got %v", resp["pin"])
	}
	if _, ok := resp["storage_path"]; ok {
		t.Fatalf("storage_path must not leak through the API")
	}
	if resp["original_filename"] != "report.pdf" {
		t.Fatalf("unexpected filename in response: %v", resp["original_filename"])
	}
}

func TestPublishEndpointRejectsTraversalFilename(t *testing.T) {
	service := newTestService(newFakeStore(), newFakeBlobStore())
	router := newTestRouter(service)

	rr := postFile(t, router, "../../etc/passwd", []byte("x"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// Unknown, malformed, expired and evicted PINs must be byte-for-byte
// indistinguishable to the caller.
func TestResolveFailuresRenderIdentically(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobStore()
	service := newTestService(store, blobs)
	router := newTestRouter(service)

	expired, err := service.Publish(context.Background(), "old.txt", "", -1, bytes.NewReader([]byte("old")))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	store.expire(expired.PIN)

	evicted, err := service.Publish(context.Background(), "gone.txt", "", -1, bytes.NewReader([]byte("gone")))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	blobs.remove(evicted.StoragePath)

	unknown := "0000"
	if unknown == expired.PIN || unknown == evicted.PIN {
		unknown = "0001"
	}

	var bodies []string
	for _, pin := range []string{unknown, "not-a-pin", expired.PIN, evicted.PIN} {
		req := httptest.NewRequest(http.MethodGet, "/v1/transfers/"+pin, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("pin %q: expected 404, got %d", pin, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
	}
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Fatalf("404 bodies differ: %q vs %q", bodies[0], bodies[i])
		}
	}
}

func TestDownloadEndpointStreamsPayload(t *testing.T) {
	service := newTestService(newFakeStore(), newFakeBlobStore())
	router := newTestRouter(service)

	payload := []byte("attachment body")
	rec, err := service.Publish(context.Background(), "notes.txt", "text/plain", int64(len(payload)), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/transfers/"+rec.PIN+"/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), payload) {
		t.Fatalf("payload mismatch: got %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="notes.txt"` {
		t.Fatalf("unexpected Content-Disposition: %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain" {
		t.Fatalf("unexpected Content-Type: %q", got)
	}
}

func TestReapEndpointReportsCount(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store, newFakeBlobStore())
	router := newTestRouter(service)

	rec, err := service.Publish(context.Background(), "old.txt", "", -1, bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	store.expire(rec.PIN)

	req := httptest.NewRequest(http.MethodPost, "/v1/maintenance/reap", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["reaped"] != 1 {
		t.Fatalf("expected 1 reaped, got %d", resp["reaped"])
	}
}
