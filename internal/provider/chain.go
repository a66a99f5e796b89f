package provider

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Chain is an ordered list of candidate gjson paths for one Quote attribute.
// The first path holding a non-null value wins, regardless of what later
// paths hold.
type Chain []string

// First returns the value at the first populated path.
func (c Chain) First(root gjson.Result) (gjson.Result, bool) {
	for _, path := range c {
		if v := root.Get(path); populated(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// Chains holds the extraction chain of every Quote attribute.
type Chains struct {
	Title Chain
	Price Chain
	Image Chain
}

// Fill populates the extracted attributes of q from root. Attributes with no
// populated candidate are left nil.
func (c Chains) Fill(q *Quote, root gjson.Result) {
	if v, ok := c.Title.First(root); ok {
		q.Title = text(v)
	}
	if v, ok := c.Price.First(root); ok {
		q.Price = observed(v)
	}
	if v, ok := c.Image.First(root); ok {
		q.Image = text(v)
	}
}

// Parse validates body and returns its root. An invalid body yields an empty
// object root, "{}" as the raw payload, and ErrParseFailure.
func Parse(body []byte) (gjson.Result, json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Parse("{}"), json.RawMessage("{}"), ErrParseFailure
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return gjson.ParseBytes(body), raw, nil
}

// Unwrap returns the first populated envelope field of root, or root itself.
func Unwrap(root gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := root.Get(k); populated(v) {
			return v
		}
	}
	return root
}

func populated(v gjson.Result) bool { return v.Exists() && v.Type != gjson.Null }

func text(v gjson.Result) *string {
	s := v.String()
	return &s
}

// observed keeps a value in the shape the provider sent it.
func observed(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	case gjson.True, gjson.False:
		return v.Bool()
	default:
		return json.RawMessage(v.Raw)
	}
}
