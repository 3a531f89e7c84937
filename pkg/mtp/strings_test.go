package mtp

import "testing"

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "IMG.JPG", "Internal Storage"} {
		w := NewWriter(nil)
		w.PutString(s)
		r := NewReader(w.Bytes())
		got, err := r.String()
		if err != nil {
			t.Fatalf("String(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("String round-trip = %q, want %q", got, s)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	dt, err := ParseDateTime("20230615T143000")
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	if dt.Zero() {
		t.Fatal("ParseDateTime: got zero DateTime for valid input")
	}
	if got := dt.Format(); got != "20230615T143000" {
		t.Errorf("Format() = %q, want %q", got, "20230615T143000")
	}
}

func TestParseDateTimeEmpty(t *testing.T) {
	dt, err := ParseDateTime("")
	if err != nil {
		t.Fatalf("ParseDateTime(\"\"): %v", err)
	}
	if !dt.Zero() {
		t.Error("ParseDateTime(\"\"): want zero DateTime")
	}
}

func TestParseDateTimeMalformedDoesNotAbort(t *testing.T) {
	dt, err := ParseDateTime("not-a-date")
	if err == nil {
		t.Fatal("ParseDateTime(garbage): want error")
	}
	if !dt.Zero() {
		t.Error("ParseDateTime(garbage): want zero DateTime alongside the error")
	}
}
