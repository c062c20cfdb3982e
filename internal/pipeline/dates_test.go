package pipeline

import (
	"testing"
	"time"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"15/03/2024":           "2024/03/15",
		"2024-03-15":           "2024/03/15",
		"45366":                "2024/03/15",
		"45366.4375":           "2024/03/15",
		"45366.0":              "2024/03/15",
		"45366.9999":           "2024/03/15",
		"25569":                "1970/01/01",
		"5/3/2024":             "2024/03/05",
		"15-03-2024":           "2024/03/15",
		"2024.03.15":           "2024/03/15",
		"2024/3/5":             "2024/03/05",
		"2024/03/15":           "2024/03/15",
		"2024-03-15T10:30:00Z": "2024/03/15",
		"2024-03-15 10:30:00":  "2024/03/15",
		"March 15, 2024":       "2024/03/15",
		"  15/03/2024  ":       "2024/03/15",
		"":                     "",
		"   ":                  "",
		" sin fecha ":          "sin fecha",
		"31/02/2024":           "31/02/2024",
	}
	for in, want := range cases {
		if got := NormalizeDate(in); got != want {
			t.Fatalf("NormalizeDate(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizeDateIsStable(t *testing.T) {
	for _, in := range []string{"15/03/2024", "45366", "2024-03-15", "texto libre"} {
		once := NormalizeDate(in)
		if twice := NormalizeDate(once); twice != once {
			t.Fatalf("%q: %q then %q", in, once, twice)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024/03/15")
	if !ok || !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	if _, ok := ParseDate("15/03/2024"); ok {
		t.Fatal("non canonical layout accepted")
	}
}
