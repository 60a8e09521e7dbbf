package capture

import (
	"testing"
	"time"
)

func TestEndsSentence(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"We will begin shortly.", true},
		{"Is everyone ready?", true},
		{"Welcome!", true},
		{"He said \"stop.\"", true},
		{"Please welcome Dr.", false},
		{"as shown in item 3.", false},
		{"and then we...", false},
		{"no terminator here", false},
		{"costs are approx.", false},
	}
	for _, c := range cases {
		if got := endsSentence(c.in); got != c.want {
			t.Errorf("endsSentence(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestWorthEnhancing(t *testing.T) {
	if WorthEnhancing("um") {
		t.Error("too-short text should be skipped")
	}
	if WorthEnhancing("123 456 789 000") {
		t.Error("text without letters should be skipped")
	}
	if !WorthEnhancing("this is a real sentence") {
		t.Error("normal text should qualify")
	}
}

func TestFlushOnSentenceBoundaryAfterMinWait(t *testing.T) {
	b := NewChunkBuffer()
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Add("c1", "The quarterly numbers look strong and the team has delivered on every milestone we set back in January. Revenue is up across all three regions and the forecast holds.")
	if b.ShouldFlush() {
		t.Fatal("boundary reached but minimum wait has not elapsed")
	}

	now = now.Add(minWait)
	if !b.ShouldFlush() {
		t.Fatal("long text at a sentence boundary should flush after the minimum wait")
	}

	text, ids := b.Flush()
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("ids = %v", ids)
	}
	if text == "" || b.Pending() != 0 {
		t.Fatal("flush must drain the buffer")
	}
}

func TestShortTextWaitsLonger(t *testing.T) {
	b := NewChunkBuffer()
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Add("c1", "Thanks.")
	now = now.Add(minWait)
	if b.ShouldFlush() {
		t.Fatal("a short fragment should wait beyond the minimum for more context")
	}

	now = now.Add(maxWait)
	if !b.ShouldFlush() {
		t.Fatal("the maximum wait must force a flush")
	}
}

func TestForceFlushOnLength(t *testing.T) {
	b := NewChunkBuffer()
	now := time.Now()
	b.now = func() time.Time { return now }

	long := make([]byte, 0, forceFlushLen+10)
	for len(long) <= forceFlushLen {
		long = append(long, "no boundary here "...)
	}
	b.Add("c1", string(long))

	if !b.ShouldFlush() {
		t.Fatal("oversized buffer must flush immediately, boundary or not")
	}
}

func TestMultiChunkJoin(t *testing.T) {
	b := NewChunkBuffer()
	b.Add("c1", "first part")
	b.Add("c2", "second part.")
	text, ids := b.Flush()
	if text != "first part second part." {
		t.Fatalf("joined = %q", text)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestEmptyBufferNeverFlushes(t *testing.T) {
	b := NewChunkBuffer()
	if b.ShouldFlush() {
		t.Fatal("empty buffer")
	}
	b.Add("c1", "   ")
	if b.Pending() != 0 {
		t.Fatal("whitespace chunks should be dropped")
	}
}
