package bloom

import (
	"fmt"
	"strings"
)

// Level is one of the six ordered cognitive levels of Bloom's taxonomy.
// The zero value means "not classified".
type Level int

const (
	Remember Level = iota + 1
	Understand
	Apply
	Analyze
	Evaluate
	Create
)

var levelNames = [...]string{
	Remember:   "Remember",
	Understand: "Understand",
	Apply:      "Apply",
	Analyze:    "Analyze",
	Evaluate:   "Evaluate",
	Create:     "Create",
}

// Levels returns all six levels in ascending order.
func Levels() []Level {
	return []Level{Remember, Understand, Apply, Analyze, Evaluate, Create}
}

// Valid reports whether l is one of the six enumerated levels.
func (l Level) Valid() bool {
	return l >= Remember && l <= Create
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a label to a Level. Matching is case-insensitive and
// ignores surrounding whitespace; anything else is an error. There is no
// default level.
func ParseLevel(s string) (Level, error) {
	label := strings.TrimSpace(s)
	for _, l := range Levels() {
		if strings.EqualFold(label, levelNames[l]) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown bloom level %q", s)
}

// Names returns the level labels in ascending order. Used for JSON schema enums.
func Names() []string {
	out := make([]string, 0, len(levelNames)-1)
	for _, l := range Levels() {
		out = append(out, levelNames[l])
	}
	return out
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid bloom level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
