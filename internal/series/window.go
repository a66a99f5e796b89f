package series

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a selectable rolling window.
type Window struct {
	Days  int    `json:"days"`
	Label string `json:"label"`
}

// DefaultWindow is the window used when none is requested.
const DefaultWindow = 365

// CanonicalWindows are the windows offered to users. Clamp accepts any
// positive length; these are only the presets.
var CanonicalWindows = []Window{
	{Days: 15, Label: "15d"},
	{Days: 30, Label: "1m"},
	{Days: 90, Label: "3m"},
	{Days: 180, Label: "6m"},
	{Days: 365, Label: "1y"},
	{Days: 730, Label: "2y"},
}

// ParseWindow accepts a preset label ("3m") or a positive day count ("45").
// An empty string selects DefaultWindow.
func ParseWindow(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultWindow, nil
	}
	for _, w := range CanonicalWindows {
		if s == w.Label {
			return w.Days, nil
		}
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid window %q: want a positive number of days or one of 15d,1m,3m,6m,1y,2y", s)
	}
	return n, nil
}
