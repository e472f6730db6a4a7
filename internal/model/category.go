package model

import "fmt"

// Category is the closed set of event kinds a society can publish.
type Category string

const (
	CategoryWorkshop Category = "workshop"
	CategorySocial   Category = "social"
	CategorySports   Category = "sports"
	CategoryMeeting  Category = "meeting"
)

// Categories lists every category in the order the UI offers them.
var Categories = []Category{CategorySocial, CategoryWorkshop, CategorySports, CategoryMeeting}

var categoryLabels = map[Category]string{
	CategorySocial:   "Social",
	CategoryWorkshop: "Workshop",
	CategorySports:   "Sports",
	CategoryMeeting:  "Meeting",
}

// ParseCategory returns the Category named by s. Unknown values are an error;
// they are never coerced to a default category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryLabels[c]; !ok {
		return "", fmt.Errorf("unknown event category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the human-readable name of the category.
func (c Category) Label() string {
	return categoryLabels[c]
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown event category %q", string(c))
	}
	return []byte(c), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
