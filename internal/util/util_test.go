package util

import "testing"

func TestHideSecret(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"ab":                 "ab",
		"abcd":               "a...d",
		"abcdef":             "ab...ef",
		"eyJhbGciOiJSUzI1Ni": "eyJh...I1Ni",
	}
	for in, want := range cases {
		if got := HideSecret(in); got != want {
			t.Fatalf("HideSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"prefix=assets%2Fimages&itemType=x": "prefix=assets%2Fimages&itemType=x",
		"access_token=abcdefghijkl&index=1": "access_token=abcd...ijkl&index=1",
		"apikey=secretvalue":                 "apikey=secr...alue",
		"flag&Password=hunter22":             "flag&Password=hu...22",
	}
	for in, want := range cases {
		if got := MaskSensitiveQuery(in); got != want {
			t.Fatalf("MaskSensitiveQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
