package chanrelay

import (
	"strings"
	"testing"
)

func TestWrapJSONP(t *testing.T) {
	if got := string(wrapJSONP("", []byte(`{a:1}`))); got != "{a:1}\n" {
		t.Errorf("unwrapped body mismatch: %q", got)
	}
	if got := string(wrapJSONP("f", []byte(`{a:1}`))); got != "f({a:1});\n" {
		t.Errorf("wrapped body mismatch: %q", got)
	}
}

func TestPushFrameQuotesCidAndSeqAsStrings(t *testing.T) {
	got := string(pushFrame("f", "data", 0, 0, []byte("hello")))
	want := `f({type: "data", cid: "0", seq: "0", content: "hello"});` + "\n"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestSignFrameUsesNumbersNotStrings(t *testing.T) {
	got := string(signFrame("f", 3, 0, "tok123", 60, 300))
	if strings.Contains(got, `cid: "3"`) || strings.Contains(got, `seq: "0"`) {
		t.Errorf("sign frame must use numeric cid/seq, got %q", got)
	}
	if !strings.Contains(got, "cid: 3") || !strings.Contains(got, "seq: 0") {
		t.Errorf("sign frame missing numeric fields: %q", got)
	}
}

func TestContentIsJSONEscaped(t *testing.T) {
	got := string(pushFrame("f", "data", 1, 2, []byte(`say "hi"`)))
	if !strings.Contains(got, `content: "say \"hi\""`) {
		t.Errorf("content should be JSON-escaped, got %q", got)
	}
}

func TestResumeFrameJoinsObjects(t *testing.T) {
	objs := [][]byte{
		dataObject("data", 0, 10, []byte("a")),
		dataObject("data", 0, 11, []byte("b")),
	}
	got := string(resumeFrame("f", objs))
	want := `f([{type: "data", cid: "0", seq: "10", content: "a"},{type: "data", cid: "0", seq: "11", content: "b"}]);` + "\n"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestCheckFrame(t *testing.T) {
	if got := string(checkFrame("x", false)); got != "{}\n" {
		t.Errorf("got %q", got)
	}
	if got := string(checkFrame("x", true)); got != `{"x": 1}`+"\n" {
		t.Errorf("got %q", got)
	}
}
