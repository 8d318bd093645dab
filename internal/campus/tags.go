package campus

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"
)

// Tags is a string list that also accepts a comma-separated string on input.
type Tags []string

func (t *Tags) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = cleanList(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("expected a list of strings or a comma-separated string")
	}
	*t = cleanList(strings.Split(s, ","))
	return nil
}

func cleanList(in []string) Tags {
	out := make(Tags, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// keywords returns the distinct lowercase words of at least two characters in texts.
func keywords(texts ...string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, text := range texts {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if len([]rune(w)) < 2 || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
