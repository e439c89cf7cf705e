// Package extract turns free text (a problem URL or a description) into a
// question draft, and asks the model for solution write-ups and list
// searches. Model output is untrusted: every response is validated and
// falls back to defaults instead of failing.
package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/shape"
)

// Draft field defaults.
const (
	DefaultName        = "Generated Question"
	DefaultPlatform    = "Other"
	DefaultTopic       = "General"
	DefaultDescription = "Generated question from user input"
)

// Draft is a question proposed by the extractor.
type Draft struct {
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	Link        string `json:"link"`
	Topic       string `json:"topic"`
	Status      string `json:"status"`
	Pinned      bool   `json:"pinned"`
	Description string `json:"description"`
}

// Question returns the draft as a sheet row.
func (d Draft) Question() schema.Question {
	return schema.Question{
		Name:     d.Name,
		Platform: d.Platform,
		Link:     d.Link,
		Topic:    d.Topic,
		Status:   d.Status,
		Pinned:   d.Pinned,
	}
}

// DefaultDraft is the draft used when nothing could be extracted.
func DefaultDraft() Draft {
	return Draft{
		Name:        DefaultName,
		Platform:    DefaultPlatform,
		Link:        schema.PlaceholderLink,
		Topic:       DefaultTopic,
		Status:      schema.StatusPending,
		Pinned:      true,
		Description: DefaultDescription,
	}
}

var draftShape = shape.Object{
	{Name: "name", Kind: shape.String},
	{Name: "platform", Kind: shape.String},
	{Name: "link", Kind: shape.String},
	{Name: "topic", Kind: shape.String},
	{Name: "description", Kind: shape.String},
}

// Extractor builds drafts, solutions and search results from a Generator.
type Extractor struct {
	gen    Generator
	logger *log.Logger
}

// New creates an extractor. A nil generator makes every call fall back to
// defaults.
func New(gen Generator, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Extractor{gen: gen, logger: logger}
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	if e.gen == nil {
		return "", ErrNoAPIKey
	}
	return e.gen.Generate(ctx, prompt)
}

// Extract asks the model for a draft describing input. It never fails: a
// generator error yields FallbackDraft(input) and an unusable response
// yields ParseDraft's defaults.
func (e *Extractor) Extract(ctx context.Context, input string) Draft {
	raw, err := e.generate(ctx, draftPrompt(input))
	if err != nil {
		e.logger.Printf("Draft generation failed, using fallback: %v", err)
		return FallbackDraft(input)
	}
	e.logger.Printf("Raw draft response: %.200s", raw)
	return ParseDraft(raw)
}

// ParseDraft extracts a draft from model text. Fields that are missing,
// blank or not strings get their defaults; text with no JSON object yields the
// default draft with the start of the text as its description. Status is
// always Pending and pinned always true.
func ParseDraft(raw string) Draft {
	d := DefaultDraft()

	m, ok := decodeFirst(raw)
	if !ok {
		d.Description = truncate(raw, 200)
		return d
	}

	fields, _ := draftShape.Conform(m)
	d.Name = text(fields, "name", DefaultName)
	d.Platform = text(fields, "platform", DefaultPlatform)
	d.Link = text(fields, "link", schema.PlaceholderLink)
	d.Topic = text(fields, "topic", DefaultTopic)
	d.Description = text(fields, "description", DefaultDescription)
	return d
}

// text is shape.Str with surrounding space trimmed; blank reads as absent.
func text(m map[string]any, key, fallback string) string {
	if s := strings.TrimSpace(shape.Str(m, key, "")); s != "" {
		return s
	}
	return fallback
}

// FallbackDraft is the default draft, keeping input as the link when it is
// a URL and inferring the platform and name from it.
func FallbackDraft(input string) Draft {
	d := DefaultDraft()

	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return d
	}

	d.Link = u.String()
	d.Platform = PlatformFromHost(u.Hostname())
	if name := nameFromPath(u.Path); name != "" {
		d.Name = name
	}
	return d
}

// PlatformFromHost maps a problem URL host to a platform name.
func PlatformFromHost(host string) string {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	switch {
	case host == "leetcode.com" || strings.HasSuffix(host, ".leetcode.com") || host == "leetcode.cn":
		return "LeetCode"
	case host == "codeforces.com" || strings.HasSuffix(host, ".codeforces.com"):
		return "Codeforces"
	default:
		return DefaultPlatform
	}
}

// nameFromPath turns a slug such as /problems/two-sum/ into "Two Sum".
func nameFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "problems" && i+1 < len(parts) {
			return titleFromSlug(parts[i+1])
		}
	}
	return ""
}

func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func draftPrompt(input string) string {
	return fmt.Sprintf(`You are an expert competitive programmer. Extract the details of the DSA question described below.

Input: %s

Respond with ONLY a JSON object, no markdown and no other text:
{
  "name": "question title",
  "platform": "LeetCode" or "Codeforces" or "Other",
  "link": "full URL of the problem, or \"#\" when none is known",
  "topic": "specific DSA topic, e.g. Binary Search, Dynamic Programming, Graph",
  "status": "Pending",
  "pinned": true,
  "description": "one or two sentence summary of the problem"
}

Rules:
- A leetcode.com URL means platform "LeetCode"; a codeforces.com URL means "Codeforces".
- For a plain description, pick the most likely platform and a fitting title.
- status is always "Pending" and pinned is always true.`, input)
}
