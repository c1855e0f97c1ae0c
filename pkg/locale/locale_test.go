package locale

import (
	"reflect"
	"testing"
)

func TestResolver_Normalize(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "canonical", raw: "vi", want: "vi"},
		{name: "canonical upper case", raw: "JA", want: "ja"},
		{name: "regional alias", raw: "en-US", want: "en"},
		{name: "underscore alias", raw: "en_GB", want: "en"},
		{name: "short alias", raw: "vn", want: "vi"},
		{name: "primary subtag", raw: "ja-Latn", want: "ja"},
		{name: "alias primary subtag", raw: "jp-x-custom", want: "ja"},
		{name: "padded", raw: "  vi-VN ", want: "vi"},
		{name: "empty", raw: "", want: "en"},
		{name: "unsupported", raw: "xx-unsupported", want: "en"},
		{name: "garbage", raw: "??", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolver_Chain(t *testing.T) {
	r := Default()

	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "vi", want: []string{"vi", "en"}},
		{raw: "vi_VN", want: []string{"vi", "en"}},
		{raw: "JA", want: []string{"ja", "en"}},
		{raw: "xx-unsupported", want: []string{"en"}},
		{raw: "en", want: []string{"en"}},
		{raw: "EN", want: []string{"en"}},
		{raw: "en-US", want: []string{"en"}},
		{raw: "en_GB", want: []string{"en"}},
		{raw: "us", want: []string{"en"}},
		{raw: "", want: []string{"en"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := r.Chain(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chain(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNew_IgnoresAliasesToUnsupportedCodes(t *testing.T) {
	r := New(Config{
		Default:   "vi",
		Supported: []string{"en"},
		Aliases:   map[string]string{"fr-CA": "fr", "us": "en"},
	})

	if got := r.Normalize("fr-CA"); got != "vi" {
		t.Errorf("Normalize(fr-CA) = %q, want default vi", got)
	}
	if got := r.Normalize("us"); got != "en" {
		t.Errorf("Normalize(us) = %q, want en", got)
	}
	if !r.IsSupported("VI") {
		t.Error("default locale should be supported")
	}
	if got := r.Supported(); !reflect.DeepEqual(got, []string{"en", "vi"}) {
		t.Errorf("Supported() = %v", got)
	}
}

func TestNew_EmptyDefault(t *testing.T) {
	r := New(Config{})
	if r.Default() != DefaultLocale {
		t.Errorf("Default() = %q, want %q", r.Default(), DefaultLocale)
	}
}
