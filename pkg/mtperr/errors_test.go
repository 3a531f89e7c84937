package mtperr

import (
	"errors"
	"testing"
)

func TestFromResponseMapsKnownCodes(t *testing.T) {
	cases := []struct {
		code uint16
		want error
	}{
		{0x2009, ErrNoEntry},       // Invalid_ObjectHandle
		{0x201A, ErrNoEntry},       // Invalid_Parent_Object
		{0x2008, ErrNoEntry},       // Invalid_StorageID
		{0x200F, ErrInvalid},       // Access_Denied
		{0x200D, ErrInvalid},       // Object_WriteProtected
		{0x200E, ErrInvalid},       // Store_Read_Only
		{0x200C, ErrNoSpace},       // Store_Full
		{0x2005, ErrNotSupported},  // Operation_Not_Supported
		{0x2002, ErrIO},            // General_Error, falls to default
	}
	for _, c := range cases {
		err := FromResponse(c.code)
		if !errors.Is(err, c.want) {
			t.Errorf("FromResponse(0x%04X) = %v, want kind %v", c.code, err, c.want)
		}
	}
}

func TestResponseErrorNamesKnownCode(t *testing.T) {
	err := NewResponseError(0x2009)
	want := "mtp: response Invalid_ObjectHandle (0x2009)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestResponseErrorFallsBackForUnknownCode(t *testing.T) {
	err := NewResponseError(0x9999)
	want := "mtp: response 0x9999"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFsErrorUnwrapsToKind(t *testing.T) {
	cause := errors.New("underlying")
	err := Fs(ErrNoEntry, cause)
	if !errors.Is(err, ErrNoEntry) {
		t.Errorf("expected errors.Is to match ErrNoEntry")
	}
	if got := err.Error(); got == "" {
		t.Errorf("expected non-empty error message")
	}
}

func TestFsErrorWithoutCause(t *testing.T) {
	err := Fs(ErrInvalid, nil)
	if got, want := err.Error(), ErrInvalid.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
