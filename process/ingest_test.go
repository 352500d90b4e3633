package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReceiptBaseDir(t *testing.T) {
	t.Setenv("RECEIPT_BASE", "")
	if got := receiptBaseDir(); got != "receipts" {
		t.Fatalf("default base dir = %q", got)
	}
	t.Setenv("RECEIPT_BASE", "/srv/incoming")
	if got := receiptBaseDir(); got != "/srv/incoming" {
		t.Fatalf("env base dir = %q", got)
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

func TestIsSupportedExt(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.tiff"} {
		if !isSupportedExt(name) {
			t.Fatalf("%s should be supported", name)
		}
	}
	for _, name := range []string{"a.txt", "b.pdf", "noext"} {
		if isSupportedExt(name) {
			t.Fatalf("%s should be rejected", name)
		}
	}
}
