// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

// ErrMalformedReply marks a model reply that cannot be turned into an
// Assessment. Such replies are not retried.
var ErrMalformedReply = errors.New("malformed model reply")

// modelReply mirrors the JSON object requested by the prompt. Fields are
// lenient because models drift from the requested types.
type modelReply struct {
	Relevant        flexBool   `json:"is_relevant"`
	Aspects         stringList `json:"aspects"`
	LargeTrial      flexBool   `json:"is_large_trial"`
	Summary         string     `json:"summary"`
	NotableFindings *string    `json:"revolutionary_aspects"`
	Score           flexInt    `json:"impact_score"`
}

// ParseReply extracts the JSON object from a model reply and builds the
// Assessment for article. Missing fields take their zero defaults.
func ParseReply(text string, article types.Article) (types.Assessment, error) {
	payload := extractJSON(text)

	var r modelReply
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		// Some replies wrap the object in prose; retry on the outermost braces.
		start, end := strings.Index(payload, "{"), strings.LastIndex(payload, "}")
		if start < 0 || end <= start {
			return types.Assessment{}, fmt.Errorf("%w: %v: %s", ErrMalformedReply, err, snippet(text))
		}
		r = modelReply{}
		if err2 := json.Unmarshal([]byte(payload[start:end+1]), &r); err2 != nil {
			return types.Assessment{}, fmt.Errorf("%w: %v: %s", ErrMalformedReply, err2, snippet(text))
		}
	}

	a := types.Assessment{
		Article:    article,
		Relevant:   bool(r.Relevant),
		Aspects:    types.NormalizeAspects(r.Aspects),
		LargeTrial: bool(r.LargeTrial),
		Summary:    strings.TrimSpace(r.Summary),
		Score:      types.ClampScore(int(r.Score)),
	}
	if r.NotableFindings != nil {
		if s := strings.TrimSpace(*r.NotableFindings); s != "" && !strings.EqualFold(s, "null") && !strings.EqualFold(s, "none") {
			a.NotableFindings = &s
		}
	}
	return a, nil
}

// extractJSON returns the body of a ```json fence, else of the first ```
// fence, else the trimmed text.
func extractJSON(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

// flexBool accepts true/false, "yes"/"no" and "true"/"false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("want boolean, got %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y":
		*b = true
	default:
		*b = false
	}
	return nil
}

// flexInt accepts integers, floats (rounded) and numeric strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexInt(math.Round(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("want number, got %s", data)
	}
	s = strings.TrimSpace(s)
	if before, _, ok := strings.Cut(s, "/"); ok {
		s = strings.TrimSpace(before)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("want number, got %q", s)
	}
	*n = flexInt(math.Round(f))
	return nil
}

// stringList accepts a JSON array of strings or a single comma-separated string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("want list of strings, got %s", data)
	}
	*l = strings.Split(s, ",")
	return nil
}
