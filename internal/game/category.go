package game

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category identifies one kind of hosted game, derived from lobby titles.
type Category string

const (
	CategoryROTRP          Category = "rotrp"
	CategoryYARP           Category = "yarp"
	CategorySOTDRP         Category = "sotdrp"
	CategoryAOC            Category = "aoc"
	CategoryGCG            Category = "gcg"
	CategoryTL             Category = "tl"
	CategoryLOAD           Category = "load"
	CategoryMZI            Category = "mzi"
	CategoryROTK           Category = "rotk"
	CategorySpiderInvasion Category = "spider_invasion"
	CategoryAzeroth        Category = "azeroth"
	CategoryFantasyLife    Category = "fantasy_life"
	CategoryEAW            Category = "eaw"
	CategoryRP             Category = "rp"
)

// definition binds a category to its title pattern and the role name
// aliases used to resolve a mention in a guild.
type definition struct {
	category Category
	pattern  *regexp.Regexp
	aliases  []string
}

// definitions is evaluated in declared order; the first matching pattern
// wins. The generic "rp" pattern must stay last or it would shadow the
// more specific roleplay variants.
var definitions = []definition{
	{CategoryROTRP, regexp.MustCompile(`(rotrp)`), []string{"RotRP"}},
	{CategoryYARP, regexp.MustCompile(`(yarp)`), []string{"YARP"}},
	{CategorySOTDRP, regexp.MustCompile(`(sotdrp)`), []string{"SotDRP"}},
	{CategoryAOC, regexp.MustCompile(`(\baoc\b|aocl|aocrp)`), []string{"AOC"}},
	{CategoryGCG, regexp.MustCompile(`(gcg|guilty crown)`), nil},
	{CategoryTL, regexp.MustCompile(`(\bkot\b|titans land|titan land|titanland|\btl\b)`), []string{"TL", "Titan's Land", "Titan Land"}},
	{CategoryLOAD, regexp.MustCompile(`(\bload\b|life of a dragon)`), []string{"LoaD"}},
	{CategoryMZI, regexp.MustCompile(`(mzi|medieval zombie invasion|medieval zombie|riverlands|winterscape|cityscape)`), []string{"MZI"}},
	{CategoryROTK, regexp.MustCompile(`(rotk|three kingdoms)`), []string{"Strategist"}},
	{CategorySpiderInvasion, regexp.MustCompile(`(spider invasion)`), nil},
	{CategoryAzeroth, regexp.MustCompile(`(azeroth rp|azzy|kacpa)`), []string{"Azeroth"}},
	{CategoryFantasyLife, regexp.MustCompile(`(fantasy life|fl)`), []string{"Fantasy Life"}},
	{CategoryEAW, regexp.MustCompile(`(eaw|europe at war)`), []string{"Strategist"}},
	{CategoryRP, regexp.MustCompile(`(roleplay|\brp\b)`), nil},
}

// ignorePattern excludes lobbies for languages/regions we don't track.
var ignorePattern = regexp.MustCompile(`(\bpl\b|\bru\b|\bfr\b|\brus\b|\bger\b)`)

// Classify maps a lobby title to a category. The ignore list is checked
// first; otherwise categories are tested in declared order and the first
// match wins. Matching is case-insensitive containment.
func Classify(title string) (Category, bool) {
	lowered := strings.ToLower(title)

	if ignorePattern.MatchString(lowered) {
		return "", false
	}

	for _, def := range definitions {
		if def.pattern.MatchString(lowered) {
			return def.category, true
		}
	}

	return "", false
}

// Aliases returns the role name aliases for a category, used to resolve a
// destination-specific mention. May be empty.
func Aliases(c Category) []string {
	for _, def := range definitions {
		if def.category == c {
			return def.aliases
		}
	}
	return nil
}

// All returns every known category in declared order.
func All() []Category {
	categories := make([]Category, 0, len(definitions))
	for _, def := range definitions {
		categories = append(categories, def.category)
	}
	return categories
}

// Valid reports whether s names a known category.
func Valid(s string) bool {
	for _, def := range definitions {
		if string(def.category) == s {
			return true
		}
	}
	return false
}

// ParseCategories parses a comma-separated category list as used by the
// command surface. The literal "all" expands to every known category.
func ParseCategories(input string) ([]Category, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return nil, fmt.Errorf("no categories given")
	}

	if input == "all" {
		return All(), nil
	}

	seen := make(map[Category]bool)
	var categories []Category
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !Valid(part) {
			return nil, fmt.Errorf("unknown category: %s", part)
		}
		c := Category(part)
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories given")
	}

	return categories, nil
}

// FormatCategories renders a category set as a stable comma-separated list.
func FormatCategories(categories []Category) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
