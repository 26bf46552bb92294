package search

import (
	"fmt"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/bkk-condo-map/internal/geo"
)

func regions(names ...string) *geojson.FeatureCollection {
	fc := geo.NewCollection()
	for _, n := range names {
		f := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
		f.Properties["AMP_NAME_T"] = n
		fc.Append(f)
	}
	return fc
}

func TestSuggest_ShortInputYieldsNothing(t *testing.T) {
	fc := regions("กรุงเทพ", "บางรัก")
	if got := Suggest("ก", fc); got != nil {
		t.Fatalf("one rune must not suggest, got %v", got)
	}
	if got := Suggest("", fc); got != nil {
		t.Fatalf("empty input must not suggest, got %v", got)
	}
}

func TestSuggest_SubstringCaseInsensitiveLimited(t *testing.T) {
	var names []string
	for i := 0; i < 8; i++ {
		names = append(names, fmt.Sprintf("Bang%d", i))
	}
	names = append([]string{"Chatuchak", "bangrak", "bangrak"}, names...)
	got := Suggest("BANG", regions(names...))
	want := []string{"bangrak", "Bang0", "Bang1", "Bang2", "Bang3"}
	if !slices.Equal(got, want) {
		t.Fatalf("Suggest=%v want %v", got, want)
	}
	if got := Suggest("tuch", regions(names...)); !slices.Equal(got, []string{"Chatuchak"}) {
		t.Fatalf("substring=%v", got)
	}
}

func TestBox_KeyboardNavigation(t *testing.T) {
	fc := regions("บางรัก", "บางกะปิ", "บางซื่อ")
	b := NewBox()
	if !b.SetInput("บาง", fc) || len(b.Suggestions) != 3 || b.Active != -1 {
		t.Fatalf("box=%+v", b)
	}
	if _, ok := b.Press(KeyEnter); ok {
		t.Fatalf("Enter without highlight must not commit")
	}
	b.Press(KeyUp)
	if b.Active != -1 {
		t.Fatalf("Up from none stays none, got %d", b.Active)
	}
	for i := 0; i < 5; i++ {
		b.Press(KeyDown)
	}
	if b.Active != 2 {
		t.Fatalf("Down clamps at last, got %d", b.Active)
	}
	for i := 0; i < 5; i++ {
		b.Press(KeyUp)
	}
	if b.Active != 0 {
		t.Fatalf("Up clamps at first, got %d", b.Active)
	}
	b.Press(KeyDown)
	name, ok := b.Press(KeyEnter)
	if !ok || name != "บางกะปิ" || b.Input != "บางกะปิ" || b.Suggestions != nil || b.Active != -1 {
		t.Fatalf("commit: %q %v %+v", name, ok, b)
	}
}

func TestBox_EscapeAndShortInput(t *testing.T) {
	fc := regions("บางรัก")
	b := NewBox()
	b.SetInput("บาง", fc)
	b.Press(KeyDown)
	b.Press(KeyEscape)
	if b.Suggestions != nil || b.Active != -1 || b.Input != "บาง" {
		t.Fatalf("escape: %+v", b)
	}
	if b.SetInput("บ", fc) {
		t.Fatalf("short input must report a clear")
	}
}

func TestParseKey(t *testing.T) {
	for in, want := range map[string]Key{"ArrowDown": KeyDown, "up": KeyUp, "Enter": KeyEnter, "esc": KeyEscape} {
		if k, err := ParseKey(in); err != nil || k != want {
			t.Fatalf("ParseKey(%q)=%v,%v", in, k, err)
		}
	}
	if _, err := ParseKey("Tab"); err == nil {
		t.Fatalf("expected error")
	}
}
