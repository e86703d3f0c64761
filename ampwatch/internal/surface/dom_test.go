package surface

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestQuery(t *testing.T) {
	doc, err := parseDocument([]byte(panelHTML))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		sel  string
		want int
	}{
		{"button", 2},
		{"[w-val]", 3},
		{"span[w-val]", 3},
		{`[id="pw"]`, 1},
		{"[id=op]", 1},
		{"button, [w-val]", 5},
		{`div.dash > span[w-val="dashboard/values/swr"]`, 1},
		{"table", 0},
	}
	for _, tt := range tests {
		nodes, err := query(doc, tt.sel)
		if err != nil {
			t.Errorf("query(%q): %v", tt.sel, err)
			continue
		}
		if len(nodes) != tt.want {
			t.Errorf("query(%q) = %d nodes, want %d", tt.sel, len(nodes), tt.want)
		}
	}
}

func TestQuery_Invalid(t *testing.T) {
	doc, err := parseDocument([]byte(panelHTML))
	if err != nil {
		t.Fatal(err)
	}
	for _, sel := range []string{"", "div >", "[w-val"} {
		if _, err := query(doc, sel); err == nil {
			t.Errorf("query(%q): expected error", sel)
		}
	}
}

func TestQuery_DocumentOrder(t *testing.T) {
	doc, err := parseDocument([]byte(`<p w-val="a"><b w-val="b"></b></p><i w-val="c"></i>`))
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := query(doc, "[w-val]")
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, n := range nodes {
		v, _ := attr(n, "w-val")
		keys = append(keys, v)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("keys = %v", keys)
	}
}

func TestHasLiveValues(t *testing.T) {
	if !HasLiveValues([]byte(panelHTML)) {
		t.Error("panel with text must be live")
	}
	shell := `<html><body><span w-val="dashboard/values/swr">  </span><script>fill()</script></body></html>`
	if HasLiveValues([]byte(shell)) {
		t.Error("empty tagged elements must not count as live")
	}
	if HasLiveValues([]byte(`<html><body><p>hello</p></body></html>`)) {
		t.Error("page without markers must not be live")
	}
}

func TestResourceName(t *testing.T) {
	set := blockSet([]string{"Images", " fonts ", "media"})
	tests := []struct {
		typ  proto.NetworkResourceType
		want bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypeMedia, true},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeDocument, false},
	}
	for _, tt := range tests {
		if got := set[resourceName(tt.typ)]; got != tt.want {
			t.Errorf("%s blocked = %v, want %v", tt.typ, got, tt.want)
		}
	}
}
