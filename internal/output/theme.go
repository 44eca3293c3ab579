package output

import (
	"fmt"
	"sort"
	"strings"
)

// Theme is a colour set shared by the spreadsheet and hypertext sinks.
// Colours are RGB hex strings without a leading '#'.
type Theme struct {
	Name        string
	HeadingBack string
	HeadingFore string
	SectionBack string
	SectionFore string
	ContentBack string
	ContentFore string
}

// Status colours used regardless of the theme.
const (
	passColor    = "008000"
	failColor    = "FF0000"
	warningColor = "FF8C00"
)

var themes = map[string]Theme{
	"classic": {
		Name:        "classic",
		HeadingBack: "12374F",
		HeadingFore: "FFFFFF",
		SectionBack: "A6B9C9",
		SectionFore: "000000",
		ContentBack: "FFFFFF",
		ContentFore: "000000",
	},
	"mystic": {
		Name:        "mystic",
		HeadingBack: "4D7C7B",
		HeadingFore: "FFFF99",
		SectionBack: "89B6B5",
		SectionFore: "000000",
		ContentBack: "FAFAC5",
		ContentFore: "000000",
	},
	"olive": {
		Name:        "olive",
		HeadingBack: "686145",
		HeadingFore: "EDE9CE",
		SectionBack: "C5AF7D",
		SectionFore: "000000",
		ContentBack: "EDE9CE",
		ContentFore: "000000",
	},
	"autumn": {
		Name:        "autumn",
		HeadingBack: "7F3300",
		HeadingFore: "FFFFFF",
		SectionBack: "D9A066",
		SectionFore: "000000",
		ContentBack: "FFF2CC",
		ContentFore: "000000",
	},
}

// DefaultTheme is used when no theme is configured.
func DefaultTheme() Theme { return themes["classic"] }

// ThemeByName resolves a theme case-insensitively. An empty name selects the default.
func ThemeByName(name string) (Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultTheme(), nil
	}
	t, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames lists the available themes in alphabetical order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
