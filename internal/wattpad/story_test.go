package wattpad

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractStoryID(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://www.wattpad.com/story/123456-my-story", "123456"},
		{"https://www.wattpad.com/story/123456-my-story/", "123456"},
		{"https://www.wattpad.com/987654-chapter-one", "987654"},
		{"https://www.wattpad.com/story/42", "42"},
		{"https://www.wattpad.com/story/42?utm_source=share#top", "42"},
		{"https://www.wattpad.com/story/123-a/parts/456-b", "456"},
	}
	for _, tt := range tests {
		got, err := ExtractStoryID(tt.url)
		if err != nil {
			t.Fatalf("ExtractStoryID(%q): %v", tt.url, err)
		}
		if got != tt.want {
			t.Fatalf("ExtractStoryID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
	if _, err := ExtractStoryID("https://www.wattpad.com/user/someone"); !errors.Is(err, ErrNoStoryID) {
		t.Fatalf("expected ErrNoStoryID, got %v", err)
	}
}

func TestCleanPartTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Chapter One Mon, Jan 2, 2006", "Chapter One"},
		{"Chapter One - Tue Feb 14, 2023", "Chapter One"},
		{"Prologue:", "Prologue"},
		{"A   spaced    title", "A spaced title"},
		{"Monday plans", "Monday plans"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanPartTitle(tt.in); got != tt.want {
			t.Fatalf("CleanPartTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const storyPage = `<!doctype html>
<html><head>
<title>Fallback Title - Wattpad</title>
<meta property="og:title" content="The Long Road - Wattpad">
<meta name="author" content="someone">
</head><body>
<h1>Heading Title</h1>
<ul aria-label="story-parts">
  <li><a href="/111-chapter-one"><div>Chapter One</div><div>Mon, Jan 2, 2006</div></a></li>
  <li><a href="https://www.wattpad.com/222-chapter-two">Chapter   Two</a></li>
  <li><a href="/about">About</a></li>
  <li><a>No link</a></li>
</ul>
</body></html>`

func TestParseStory(t *testing.T) {
	story, err := ParseStory("https://www.wattpad.com/story/999-the-long-road", strings.NewReader(storyPage))
	if err != nil {
		t.Fatalf("ParseStory: %v", err)
	}
	want := &Story{
		ID:     "999",
		URL:    "https://www.wattpad.com/story/999-the-long-road",
		Title:  "The Long Road",
		Author: "someone",
		Parts: []Part{
			{ID: "111", Title: "Chapter One", URL: "https://www.wattpad.com/111-chapter-one"},
			{ID: "222", Title: "Chapter Two", URL: "https://www.wattpad.com/222-chapter-two"},
		},
	}
	if diff := cmp.Diff(want, story); diff != "" {
		t.Fatalf("story mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStoryTitleFallbacks(t *testing.T) {
	parts := `<ul aria-label="story-parts"><li><a href="/1-x">X</a></li></ul>`
	tests := []struct {
		name, page, want string
	}{
		{"heading", `<html><head><title>T - Wattpad</title></head><body><h2> Second <b>Level</b> </h2>` + parts + `</body></html>`, "Second Level"},
		{"title tag", `<html><head><title>Only Title - Wattpad</title></head><body>` + parts + `</body></html>`, "Only Title"},
		{"empty og", `<html><head><meta property="og:title" content=""></head><body><h1>From H1</h1>` + parts + `</body></html>`, "From H1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			story, err := ParseStory("https://www.wattpad.com/story/5-s", strings.NewReader(tt.page))
			if err != nil {
				t.Fatalf("ParseStory: %v", err)
			}
			if story.Title != tt.want {
				t.Fatalf("title = %q, want %q", story.Title, tt.want)
			}
		})
	}
}

func TestParseStoryErrors(t *testing.T) {
	noTitle := `<html><body><ul aria-label="story-parts"><li><a href="/1-x">X</a></li></ul></body></html>`
	if _, err := ParseStory("https://www.wattpad.com/story/5-s", strings.NewReader(noTitle)); !errors.Is(err, ErrNoTitle) {
		t.Fatalf("expected ErrNoTitle, got %v", err)
	}
	noParts := `<html><head><title>Story</title></head><body><ul><li><a href="/1-x">X</a></li></ul></body></html>`
	if _, err := ParseStory("https://www.wattpad.com/story/5-s", strings.NewReader(noParts)); !errors.Is(err, ErrNoParts) {
		t.Fatalf("expected ErrNoParts, got %v", err)
	}
}

func TestPartDisplayTitle(t *testing.T) {
	if got := (Part{ID: "7"}).DisplayTitle(); got != "Part 7" {
		t.Fatalf("DisplayTitle = %q", got)
	}
	if got := (Part{ID: "7", Title: "Seven"}).DisplayTitle(); got != "Seven" {
		t.Fatalf("DisplayTitle = %q", got)
	}
}
