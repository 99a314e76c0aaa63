package pdftext

import "testing"

func TestExtractRejectsNonPDF(t *testing.T) {
	if _, err := Extract([]byte("plain text, not a pdf")); err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	if _, err := Extract(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestExtractRejectsTruncatedPDF(t *testing.T) {
	// Valid header, no body or xref table.
	if _, err := Extract([]byte("%PDF-1.4\n")); err == nil {
		t.Fatal("expected error for truncated pdf")
	}
}
