package chat

import (
	"strings"
	"testing"
)

func TestLooksTruncatedShortTextNeverFlagged(t *testing.T) {
	c := DefaultCatalog()
	if c.LooksTruncated("Do more squats and") {
		t.Errorf("short text must not be flagged regardless of ending")
	}
}

func TestLooksTruncatedTerminalPunctuation(t *testing.T) {
	c := DefaultCatalog()
	text := strings.Repeat("Train hard every week. ", 5) + "That is the whole plan."
	if c.LooksTruncated(text) {
		t.Errorf("text ending in a full stop must not be flagged")
	}
}

func TestLooksTruncatedTrailingConnector(t *testing.T) {
	c := DefaultCatalog()
	text := "For building muscle you should focus on progressive overload, compound lifts and"
	if !c.LooksTruncated(text) {
		t.Errorf("text ending with a connector must be flagged")
	}
}

func TestLooksTruncatedTrailingComma(t *testing.T) {
	c := DefaultCatalog()
	text := "To structure your week you could do upper body on Monday, lower body on Tuesday,"
	if !c.LooksTruncated(text) {
		t.Errorf("text ending with a comma must be flagged")
	}
}

func TestLooksTruncatedCleanEndingWithoutPunctuation(t *testing.T) {
	c := DefaultCatalog()
	// No terminal punctuation but also no connector or incomplete-phrase
	// ending: the heuristic stays quiet.
	text := "A good starting point is three full-body sessions per week with one rest day between them"
	if c.LooksTruncated(text) {
		t.Errorf("clean ending must not be flagged on missing punctuation alone")
	}
}

func TestEnforceConciseKeepsShortText(t *testing.T) {
	c := DefaultCatalog()
	got := EnforceConcise(c, "Drink water.", 200, true)
	if got != "Drink water." {
		t.Errorf("short text altered: %q", got)
	}
}

func TestEnforceConciseTrimsAtSentenceBoundary(t *testing.T) {
	c := DefaultCatalog()
	text := "First sentence here. Second sentence is quite a bit longer than the first one. Third one."
	got := EnforceConcise(c, text, 25, false)
	if got != "First sentence here." {
		t.Errorf("got %q, want first sentence only", got)
	}
}

func TestEnforceConciseAppendsOffer(t *testing.T) {
	c := DefaultCatalog()
	text := "First sentence here. Second sentence is quite a bit longer than the first one."
	got := EnforceConcise(c, text, 25, true)
	if !strings.HasSuffix(got, "ask me to elaborate.") {
		t.Errorf("elaboration offer missing: %q", got)
	}
}

func TestEnforceConciseHardTruncatesWhenNoSentenceFits(t *testing.T) {
	c := DefaultCatalog()
	text := "one very long unbroken sentence that keeps on going without any punctuation whatsoever"
	got := EnforceConcise(c, text, 30, false)
	if len(got) > 30 {
		t.Errorf("hard truncation too long: %d chars (%q)", len(got), got)
	}
	if !strings.HasPrefix(text, got) {
		t.Errorf("truncation is not a prefix of the input: %q", got)
	}
}
