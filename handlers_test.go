package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"receiptocr/pkg/ocr"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// stubEngine returns canned recognition output so handler tests need neither
// a Tesseract install nor a database.
type stubEngine struct {
	text string
}

func (s *stubEngine) DetectOrientation(ctx context.Context, img image.Image) (int, error) {
	return 0, nil
}

func (s *stubEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	return s.text, nil
}

func performRequest(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T, engine ocr.Engine) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pipe = ocr.NewPipeline(engine, time.Second)
	r := gin.New()
	setupRoutes(r)
	return r
}

func multipartImage(t *testing.T, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("image", "receipt.png")
	_, _ = w.Write(payload)
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(60, 90, color.NRGBA{255, 255, 255, 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestOCREndpoint(t *testing.T) {
	text := "ABC Supermarket\nDate: 10/07/2024\nBill No.: 14644\nGrand Total: INR 200.00\nPayment Method: card"
	r := setupTestServer(t, &stubEngine{text: text})

	body, ct := multipartImage(t, pngBytes(t))
	resp := performRequest(r, http.MethodPost, "/ocr", body, ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}

	var got struct {
		Text          string `json:"text"`
		ExtractedInfo struct {
			MerchantName  *string  `json:"merchant_name"`
			Date          *string  `json:"date"`
			TotalAmount   *float64 `json:"total_amount"`
			TransactionID *string  `json:"transaction_id"`
			PaymentMethod *string  `json:"payment_method"`
		} `json:"extracted_info"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Text != text {
		t.Fatalf("text=%q", got.Text)
	}
	ei := got.ExtractedInfo
	if ei.MerchantName == nil || *ei.MerchantName != "ABC Supermarket" {
		t.Fatalf("merchant=%v", ei.MerchantName)
	}
	if ei.Date == nil || *ei.Date != "10/07/2024" {
		t.Fatalf("date=%v", ei.Date)
	}
	if ei.TotalAmount == nil || *ei.TotalAmount != 200.0 {
		t.Fatalf("total=%v", ei.TotalAmount)
	}
	if ei.TransactionID == nil || *ei.TransactionID != "14644" {
		t.Fatalf("txid=%v", ei.TransactionID)
	}
	if ei.PaymentMethod == nil || *ei.PaymentMethod != "Card" {
		t.Fatalf("method=%v", ei.PaymentMethod)
	}
}

func TestOCREndpointNullFieldsOnEmptyText(t *testing.T) {
	r := setupTestServer(t, &stubEngine{text: ""})
	body, ct := multipartImage(t, pngBytes(t))
	resp := performRequest(r, http.MethodPost, "/ocr", body, ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var fields map[string]*json.RawMessage
	if err := json.Unmarshal(got["extracted_info"], &fields); err != nil {
		t.Fatalf("unmarshal fields: %v", err)
	}
	for _, key := range []string{"merchant_name", "date", "total_amount", "transaction_id", "payment_method"} {
		raw, ok := fields[key]
		if !ok {
			t.Fatalf("field %s missing from response shape", key)
		}
		if raw != nil && string(*raw) != "null" {
			t.Fatalf("field %s should be null, got %s", key, string(*raw))
		}
	}
}

func TestOCREndpointRejectsUndecodableUpload(t *testing.T) {
	r := setupTestServer(t, &stubEngine{})
	body, ct := multipartImage(t, []byte("this is not an image"))
	resp := performRequest(r, http.MethodPost, "/ocr", body, ct)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestOCREndpointMissingImage(t *testing.T) {
	r := setupTestServer(t, &stubEngine{})
	resp := performRequest(r, http.MethodPost, "/ocr", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestTruncateReasonRuneBoundary(t *testing.T) {
	// 254 ASCII bytes followed by a 3-byte rune straddling the cap.
	reason := strings.Repeat("x", 254) + "₹₹₹"
	got := truncateReason(reason)
	if len(got) > 255 {
		t.Fatalf("len=%d, want <= 255", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got[len(got)-4:])
	}
	if short := "decode failed"; truncateReason(short) != short {
		t.Fatalf("short reason must pass through untouched")
	}
}

func TestReceiptsUnavailableWithoutDB(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") == "1" {
		t.Skip("a database is configured for this run")
	}
	r := setupTestServer(t, &stubEngine{})
	resp := performRequest(r, http.MethodGet, "/receipts", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
}
