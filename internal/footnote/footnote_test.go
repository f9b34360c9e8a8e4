package footnote

import (
	"strings"
	"testing"
)

func TestReconcile_NumberingFollowsFirstReference(t *testing.T) {
	body := `<p>one<a href="#fn2">2</a> two<a href="#fn1">1</a></p>
<ol class="footnotes">
<li id="fn1">First note body</li>
<li id="fn2">Second note body</li>
</ol>`
	out, notes := Reconcile(body)
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	if notes[0].ID != "fn2" || notes[0].Text != "Second note body" {
		t.Fatalf("note 1 = %+v, want fn2", notes[0])
	}
	if notes[1].ID != "fn1" || notes[1].Number != 2 {
		t.Fatalf("note 2 = %+v, want fn1/#2", notes[1])
	}
	if !strings.Contains(out, Token(1)) || !strings.Contains(out, Token(2)) {
		t.Fatalf("tokens missing in %q", out)
	}
	if strings.Index(out, Token(1)) > strings.Index(out, Token(2)) {
		t.Fatalf("token order wrong: %q", out)
	}
	if strings.Contains(out, "First note body") {
		t.Fatalf("container not removed: %q", out)
	}
}

func TestReconcile_FlatBlocksTakePrecedence(t *testing.T) {
	body := `<p>x<a class="footnote-anchor" href="#footnote-1">1</a></p>
<div class="footnote"><a id="footnote-1" class="footnote-number" href="#footnote-anchor-1">1</a><div class="footnote-content"><p>Real note</p></div></div>
<ol class="footnotes"><li id="footnote-1">Decoy</li></ol>`
	out, notes := Reconcile(body)
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
	if notes[0].Text != "Real note" {
		t.Fatalf("text = %q, want flat-block body", notes[0].Text)
	}
	if strings.Contains(out, "Real note") || strings.Contains(out, "Decoy") {
		t.Fatalf("containers survived: %q", out)
	}
	if !strings.Contains(out, Token(1)) {
		t.Fatalf("ref not tokenized: %q", out)
	}
}

func TestExtract_PositionalFallback(t *testing.T) {
	body := `<p>a<a href="#fn-alpha">*</a> b<a href="#fn-beta">*</a></p>
<ol class="footnotes"><li id="item-1">alpha text</li><li id="item-2">beta text</li></ol>`
	notes := Extract(body)
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	if notes[0].ID != "fn-alpha" || notes[0].Text != "alpha text" {
		t.Fatalf("note 1 = %+v", notes[0])
	}
	if notes[1].ID != "fn-beta" || notes[1].Text != "beta text" {
		t.Fatalf("note 2 = %+v", notes[1])
	}
}

func TestExtract_UnmatchedRefKeptInBody(t *testing.T) {
	// 唯一候选是引用自身所在的块，文本为纯数字：配不出脚注，
	// 引用锚点必须原样保留
	body := `<p><a href="#fn1">1</a></p><p>ordinary prose</p>`
	out, notes := Reconcile(body)
	if len(notes) != 0 {
		t.Fatalf("notes = %d, want 0", len(notes))
	}
	if !strings.Contains(out, `href="#fn1"`) {
		t.Fatalf("unresolved ref should stay: %q", out)
	}
}

func TestExtract_MeaninglessCandidatesRejected(t *testing.T) {
	body := `<p>a<a href="#fn1">1</a>b<a href="#fn2">2</a></p>
<ol class="footnotes"><li id="fn1">3</li><li id="fn2">back to content</li></ol>`
	notes := Extract(body)
	if len(notes) != 0 {
		t.Fatalf("notes = %v, want none", notes)
	}
}

func TestRemoveContainers_NestedSameTag(t *testing.T) {
	body := `<p>before</p><div class="footnotes"><div><p>inner</p></div></div><p>after</p>`
	out := RemoveContainers(body)
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("surrounding text lost: %q", out)
	}
	if strings.Contains(out, "inner") {
		t.Fatalf("nested container content survived: %q", out)
	}
}

func TestRemoveContainers_AttrNameMatchedExactly(t *testing.T) {
	// data-postid 以 id 结尾但不是 id 属性，列表必须原样保留
	body := `<p>intro</p><ul data-postid="footnote-promo"><li>legit list item</li></ul><p>outro</p>`
	if out := RemoveContainers(body); out != body {
		t.Fatalf("legit list removed: %q", out)
	}
}

func TestFlatBlocks_NonMeaningfulDroppedBeforePairing(t *testing.T) {
	// 第一个扁平块只有导航锚点没有正文：它不得作为候选占位，
	// 逐位兜底应把首个引用配到真正有内容的块上
	body := `<p>x<a href="#fn-a">1</a> y<a href="#fn-b">2</a></p>
<div class="footnote"><a class="footnote-number" href="#one">1</a></div>
<div class="footnote">Actual note text</div>`
	notes := Extract(body)
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}
	if notes[0].ID != "fn-a" || notes[0].Text != "Actual note text" {
		t.Fatalf("note = %+v, want fn-a paired with the real block", notes[0])
	}
}

func TestRemoveContainers_PlainDivUntouched(t *testing.T) {
	body := `<div class="body markup"><p>keep me</p></div>`
	if out := RemoveContainers(body); out != body {
		t.Fatalf("plain div modified: %q", out)
	}
}

func TestCleanupText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"[1] Something useful ↩", "Something useful"},
		{"2. Note body back to content", "Note body"},
		{"  spaced   out  text  ", "spaced out text"},
		{"3) Trailing [back]", "Trailing"},
	}
	for _, c := range cases {
		if got := cleanupText(c.in); got != c.want {
			t.Fatalf("cleanupText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFragmentID(t *testing.T) {
	if id, ok := fragmentID("https://ex.com/p/post#footnote-3"); !ok || id != "footnote-3" {
		t.Fatalf("got %q/%v", id, ok)
	}
	if _, ok := fragmentID("/p/post"); ok {
		t.Fatalf("no fragment should fail")
	}
}

func TestNormalizeKey(t *testing.T) {
	if normalizeKey("Foot-Note_1") != "footnote1" {
		t.Fatalf("got %q", normalizeKey("Foot-Note_1"))
	}
}
