package reload

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"update", Update{Path: "src/app.js"}, `["update","src/app.js"]`},
		{"error", Failure{Message: "boom\nline 2"}, `["error","boom\nline 2"]`},
		{"empty error", Failure{}, `["error",""]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.result)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeNil(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Error("Encode(nil) should fail")
	}
}

func TestDecode(t *testing.T) {
	r, err := Decode([]byte(`["update","a/b.css"]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if u, ok := r.(Update); !ok || u.Path != "a/b.css" {
		t.Errorf("Decode() = %#v, want Update{a/b.css}", r)
	}

	r, err = Decode([]byte(`["error","oops"]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f, ok := r.(Failure); !ok || f.Message != "oops" {
		t.Errorf("Decode() = %#v, want Failure{oops}", r)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`["refresh","x"]`))

	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Decode() error = %v, want *UnknownTypeError", err)
	}
	if unknown.Type != "refresh" {
		t.Errorf("Type = %q, want refresh", unknown.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`{"type":"update"}`,
		`["update"]`,
		`["update","a","b"]`,
		`[1,2]`,
	}

	for _, in := range inputs {
		_, err := Decode([]byte(in))
		if err == nil {
			t.Errorf("Decode(%q) should fail", in)
			continue
		}
		var unknown *UnknownTypeError
		if errors.As(err, &unknown) {
			t.Errorf("Decode(%q) returned UnknownTypeError, want malformed", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, r := range []Result{Update{Path: "x.js"}, Failure{Message: "y"}} {
		data, err := Encode(r)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if got != r {
			t.Errorf("round trip = %#v, want %#v", got, r)
		}
	}
}

func TestTypeOf(t *testing.T) {
	if got := TypeOf(Update{}); got != TypeUpdate {
		t.Errorf("TypeOf(Update) = %q", got)
	}
	if got := TypeOf(Failure{}); got != TypeError {
		t.Errorf("TypeOf(Failure) = %q", got)
	}
	if got := TypeOf(nil); got != "" {
		t.Errorf("TypeOf(nil) = %q", got)
	}
}
