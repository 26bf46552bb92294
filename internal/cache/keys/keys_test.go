package keys

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

var allowed = regexp.MustCompile(`^[A-Za-z0-9:_=\-]+$`)

func TestViewKey_Deterministic(t *testing.T) {
	q := "region=จตุจักร&sort=name_thai:asc"
	k1 := ViewKey("condos", 3, q)
	k2 := ViewKey("condos", 3, q)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestViewKey_SpacingVariantsProduceSameKey(t *testing.T) {
	k1 := ViewKey(" condos ", 1, "  region = a  & sort = name_thai ")
	k2 := ViewKey("condos", 1, "region=a&sort=name_thai")
	if k1 != k2 {
		t.Fatalf("normalized keys differ:\n k1=%s\n k2=%s", k1, k2)
	}
	if !allowed.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestViewKey_VersionAndQuerySeparateKeys(t *testing.T) {
	base := ViewKey("condos", 1, "region=a")
	if base == ViewKey("condos", 2, "region=a") {
		t.Fatalf("versions must produce different keys")
	}
	if base == ViewKey("condos", 1, "region=b") {
		t.Fatalf("queries must produce different keys")
	}
}

func TestViewKey_ThaiQueriesStayDistinct(t *testing.T) {
	k1 := ViewKey("condos", 1, "region=จตุจักร")
	k2 := ViewKey("condos", 1, "region=บางรัก")
	if k1 == k2 {
		t.Fatalf("non-ASCII queries collapsed into one key: %s", k1)
	}
	for _, r := range k1 {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k1)
		}
	}
	if !regexp.MustCompile(`:f=[0-9a-f]{16}$`).MatchString(k1) {
		t.Fatalf("missing hash suffix: %s", k1)
	}
}

func TestDatasetKey(t *testing.T) {
	k := DatasetKey("amphoe", "https://example.org/data/Amphoe-4326.geojson")
	if !strings.HasPrefix(k, "ds:amphoe:src=") || !allowed.MatchString(k) {
		t.Fatalf("unexpected dataset key: %s", k)
	}
	if k == DatasetKey("amphoe", "data/Amphoe-4326.geojson") {
		t.Fatalf("different sources must produce different keys")
	}
}
