package detector

import (
	"regexp"
	"sort"
	"strings"
)

// Field selects which part of a trade a rule inspects
type Field int

const (
	FieldSlug Field = iota
	FieldTitle
	FieldIcon
)

// RuleCategory groups sports rules for logging and metrics
type RuleCategory string

const (
	CategoryCryptoOverride RuleCategory = "crypto_override"
	CategoryLeagueSlug     RuleCategory = "league_slug"
	CategoryTeamName       RuleCategory = "team_name"
	CategoryBettingTerm    RuleCategory = "betting_term"
	CategoryWillWin        RuleCategory = "will_win"
	CategoryChampionship   RuleCategory = "championship"
	CategoryIcon           RuleCategory = "icon"
)

// Rule is one row of the sports classification table. Rules run in
// ascending Priority; the first rule that matches any of its Fields decides.
type Rule struct {
	Name     string
	Category RuleCategory
	Priority int
	Fields   []Field
	Match    func(s string) bool
	IsSports bool
}

// Matches reports whether the rule fires for the given lower-cased fields
func (r Rule) Matches(f marketFields) bool {
	for _, field := range r.Fields {
		if r.Match(f.get(field)) {
			return true
		}
	}
	return false
}

// Verdict is the classifier's decision and the rule that made it
type Verdict struct {
	IsSports bool
	Rule     string
	Category RuleCategory
}

// SportsClassifier evaluates a rule table in priority order
type SportsClassifier struct {
	rules []Rule
}

// NewSportsClassifier sorts rules by priority. Equal priorities keep the
// order they were given in.
func NewSportsClassifier(rules []Rule) *SportsClassifier {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &SportsClassifier{rules: sorted}
}

// Rules returns the table in evaluation order
func (c *SportsClassifier) Rules() []Rule {
	return c.rules
}

// Classify returns the verdict of the first matching rule, or a non-sports
// verdict when none match.
func (c *SportsClassifier) Classify(t Trade) Verdict {
	f := fieldsOf(t)
	for _, rule := range c.rules {
		if rule.Matches(f) {
			return Verdict{IsSports: rule.IsSports, Rule: rule.Name, Category: rule.Category}
		}
	}
	return Verdict{}
}

// IsSports reports whether the trade belongs to a sports market
func (c *SportsClassifier) IsSports(t Trade) bool {
	return c.Classify(t).IsSports
}

var defaultSports = NewSportsClassifier(DefaultSportsRules())

// IsSportsTrade classifies a trade with the default rule table
func IsSportsTrade(t Trade) bool {
	return defaultSports.IsSports(t)
}

type marketFields struct {
	slug  string
	title string
	icon  string
}

func (f marketFields) get(field Field) string {
	switch field {
	case FieldSlug:
		return f.slug
	case FieldTitle:
		return f.title
	case FieldIcon:
		return f.icon
	}
	return ""
}

func fieldsOf(t Trade) marketFields {
	slug := t.Slug
	if slug == "" {
		slug = t.EventSlug
	}
	return marketFields{
		slug:  strings.ToLower(slug),
		title: strings.ToLower(t.Title),
		icon:  strings.ToLower(t.Icon),
	}
}

func matchRegexp(pattern string) func(string) bool {
	re := regexp.MustCompile(`(?i)` + pattern)
	return re.MatchString
}

func matchPrefix(prefixes ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				return true
			}
		}
		return false
	}
}

func matchContains(tokens ...string) func(string) bool {
	return func(s string) bool {
		for _, tok := range tokens {
			if strings.Contains(s, tok) {
				return true
			}
		}
		return false
	}
}

var (
	slugOrTitle = []Field{FieldSlug, FieldTitle}
	slugOnly    = []Field{FieldSlug}
	titleOnly   = []Field{FieldTitle}
	iconOnly    = []Field{FieldIcon}
)

// DefaultSportsRules is the reference classification table.
// Crypto overrides come first: asset tickers collide with sports tokens.
func DefaultSportsRules() []Rule {
	return []Rule{
		{Name: "crypto_asset", Category: CategoryCryptoOverride, Priority: 10, Fields: slugOrTitle,
			Match: matchRegexp(`bitcoin|btc|ethereum|eth|solana|sol|xrp|crypto`)},
		{Name: "crypto_up_or_down", Category: CategoryCryptoOverride, Priority: 11, Fields: slugOrTitle,
			Match: matchRegexp(`up or down`)},
		{Name: "crypto_updown", Category: CategoryCryptoOverride, Priority: 12, Fields: slugOrTitle,
			Match: matchRegexp(`updown`)},
		{Name: "crypto_price_will", Category: CategoryCryptoOverride, Priority: 13, Fields: slugOrTitle,
			Match: matchRegexp(`price.*will`)},
		{Name: "crypto_reach_dollar", Category: CategoryCryptoOverride, Priority: 14, Fields: slugOrTitle,
			Match: matchRegexp(`reach.*\$`)},

		{Name: "league_slug_prefix", Category: CategoryLeagueSlug, Priority: 20, Fields: slugOnly, IsSports: true,
			Match: matchPrefix(
				"nfl-", "nba-", "mlb-", "nhl-", "mls-", "ufc-",
				"epl-", "lal-", "sea-", "fl1-", "cbb-", "cfb-",
				"wta-", "atp-", "pga-", "lpga-", "acn-", "f1-",
			)},

		{Name: "nfl_team", Category: CategoryTeamName, Priority: 30, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\b(patriots|cowboys|eagles|chiefs|bills|rams|49ers|packers|dolphins|broncos|ravens|steelers|bengals|browns|titans|colts|texans|jaguars|commanders|giants|jets|saints|falcons|panthers|buccaneers|vikings|lions|bears|seahawks|cardinals|chargers|raiders)\b`)},
		{Name: "nba_team", Category: CategoryTeamName, Priority: 31, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\b(lakers|celtics|warriors|bulls|heat|knicks|nets|bucks|76ers|suns|nuggets|mavericks|grizzlies|pelicans|spurs|rockets|thunder|blazers|jazz|clippers|kings|timberwolves|pistons|pacers|hawks|hornets|wizards|magic|cavaliers|raptors)\b`)},
		{Name: "mlb_team", Category: CategoryTeamName, Priority: 32, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\b(yankees|dodgers|mets|cubs|red sox|braves|astros|padres|phillies|cardinals|marlins|brewers|giants|rangers|guardians|twins|orioles|rays|mariners|blue jays|tigers|royals|angels|white sox|rockies|reds|diamondbacks|nationals|pirates|athletics)\b`)},
		{Name: "nhl_team", Category: CategoryTeamName, Priority: 33, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\b(bruins|rangers|maple leafs|canadiens|penguins|blackhawks|flyers|red wings|avalanche|lightning|panthers|oilers|flames|canucks|sharks|kings|ducks|devils|islanders|capitals|blues|predators|stars|wild|jets|hurricanes|senators|sabres|blue jackets|kraken|golden knights|coyotes)\b`)},
		{Name: "soccer_club", Category: CategoryTeamName, Priority: 34, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\b(manchester city|manchester united|liverpool|chelsea|arsenal|tottenham|barcelona|real madrid|bayern|juventus|psg|inter|milan|borussia|atletico|fc\s+\w+|sporting|benfica|porto|ajax|feyenoord)\b`)},
		{Name: "fc_token", Category: CategoryTeamName, Priority: 35, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\bfc\s|\sfc\b`)},

		{Name: "spread", Category: CategoryBettingTerm, Priority: 40, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\bspread:?\s`)},
		{Name: "over_under", Category: CategoryBettingTerm, Priority: 41, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\bo/u\s*\d`)},
		{Name: "moneyline", Category: CategoryBettingTerm, Priority: 42, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`\bmoneyline\b`)},

		{Name: "will_x_win_game", Category: CategoryWillWin, Priority: 50, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`will\s+(the\s+)?[\w\s]+\s+win\s+(on|against|vs|super bowl|world series|championship|the\s+game|game\s+\d)`)},

		{Name: "named_championship", Category: CategoryChampionship, Priority: 60, Fields: titleOnly, IsSports: true,
			Match: matchRegexp(`super\s*bowl|world\s*series|stanley\s*cup|nba\s*finals|champions\s*league|premier\s*league|la\s*liga|serie\s*a|bundesliga`)},

		{Name: "league_icon", Category: CategoryIcon, Priority: 70, Fields: iconOnly, IsSports: true,
			Match: matchContains(
				"nfl", "nba", "mlb", "nhl", "ufc", "ncaa",
				"basketball", "football", "soccer", "tennis",
				"premier-league", "serie-a", "la-liga", "bundesliga",
				"africa-cup", "champions-league",
			)},
	}
}
