package fonts

import "testing"

func TestParseFontName(t *testing.T) {
	tests := []struct {
		name       string
		family     string
		style      Style
		recognized bool
	}{
		{"DejaVuSans-BoldOblique.ttf", "DejaVuSans", Style{Bold: true, Italic: true}, true},
		{"fonts/DejaVuSans-Bold.ttf", "DejaVuSans", Style{Bold: true}, true},
		{"NotoSerif-Italic.otf", "NotoSerif", Style{Italic: true}, true},
		{"NotoSans-Book.ttf", "NotoSans", Style{}, true},
		{"Inter-SemiBoldItalic.ttf", "Inter", Style{Bold: true, Italic: true}, true},
		{"builtin:Go-Regular.ttf", "Go", Style{}, true},
		{"Symbola.ttf", "Symbola", Style{}, false},
		{"Noto-Sans-CJK.ttf", "Noto-Sans-CJK", Style{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, style, ok := parseFontName(tt.name)
			if family != tt.family || style != tt.style || ok != tt.recognized {
				t.Fatalf("parseFontName(%q) = (%q, %s, %v), want (%q, %s, %v)",
					tt.name, family, style, ok, tt.family, tt.style, tt.recognized)
			}
		})
	}
}

func TestIsFontFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.ttf": true, "b.OTF": true, "c.woff": false, "readme": false,
	} {
		if got := isFontFile(name); got != want {
			t.Fatalf("isFontFile(%q) = %v, want %v", name, got, want)
		}
	}
}
