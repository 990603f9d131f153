package detector

import "testing"

func TestClassifySports(t *testing.T) {
	tests := []struct {
		name         string
		trade        Trade
		expectSports bool
		expectRule   string
		description  string
	}{
		{
			name:         "league slug prefix",
			trade:        Trade{Slug: "nfl-chiefs-vs-bills", Title: "Chiefs vs. Bills"},
			expectSports: true,
			expectRule:   "league_slug_prefix",
		},
		{
			name:         "event slug used when slug empty",
			trade:        Trade{EventSlug: "nba-lal-bos-2025-01-10", Title: "Game tonight"},
			expectSports: true,
			expectRule:   "league_slug_prefix",
		},
		{
			name:         "crypto title is not sports",
			trade:        Trade{Title: "Will Bitcoin reach $100k?"},
			expectSports: false,
			expectRule:   "crypto_asset",
		},
		{
			name:         "crypto beats team name",
			trade:        Trade{Title: "Will Solana beat the Lakers?"},
			expectSports: false,
			expectRule:   "crypto_asset",
			description:  "Crypto rules run before every sports rule",
		},
		{
			name:         "up or down market",
			trade:        Trade{Title: "Up or Down on Friday?"},
			expectSports: false,
			expectRule:   "crypto_up_or_down",
		},
		{
			name:         "nba team in title",
			trade:        Trade{Title: "Lakers vs Celtics"},
			expectSports: true,
			expectRule:   "nba_team",
		},
		{
			name:         "soccer club",
			trade:        Trade{Title: "FC Barcelona to advance?"},
			expectSports: true,
			expectRule:   "soccer_club",
		},
		{
			name:         "spread market",
			trade:        Trade{Title: "Spread: Home (-3.5)"},
			expectSports: true,
			expectRule:   "spread",
		},
		{
			name:         "over under market",
			trade:        Trade{Title: "Game total O/U 45.5"},
			expectSports: true,
			expectRule:   "over_under",
		},
		{
			name:         "will x win against",
			trade:        Trade{Title: "Will the home side win against the visitors?"},
			expectSports: true,
			expectRule:   "will_x_win_game",
		},
		{
			name:         "named championship",
			trade:        Trade{Title: "Who wins the Super Bowl?"},
			expectSports: true,
			expectRule:   "named_championship",
		},
		{
			name:         "league icon",
			trade:        Trade{Title: "Alcaraz vs Sinner", Icon: "https://cdn.example.com/tennis-ball.png"},
			expectSports: true,
			expectRule:   "league_icon",
		},
		{
			name:         "politics market",
			trade:        Trade{Title: "Will the Fed cut rates in December?", Slug: "fed-decision-december"},
			expectSports: false,
			expectRule:   "",
			description:  "No rule matches",
		},
	}

	c := NewSportsClassifier(DefaultSportsRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.trade)
			if v.IsSports != tt.expectSports {
				t.Errorf("IsSports = %v, want %v (%s)", v.IsSports, tt.expectSports, tt.description)
			}
			if v.Rule != tt.expectRule {
				t.Errorf("Rule = %q, want %q (%s)", v.Rule, tt.expectRule, tt.description)
			}
		})
	}
}

func TestIsSportsTrade(t *testing.T) {
	if !IsSportsTrade(Trade{Slug: "nhl-bos-tor"}) {
		t.Error("expected nhl slug to be sports")
	}
	if IsSportsTrade(Trade{Title: "Random Market", Slug: "xyz-123"}) {
		t.Error("expected random market not to be sports")
	}
}

func TestSportsClassifierPriorityOrder(t *testing.T) {
	always := func(string) bool { return true }
	rules := []Rule{
		{Name: "late", Priority: 50, Fields: titleOnly, Match: always, IsSports: true},
		{Name: "early", Priority: 1, Fields: titleOnly, Match: always, IsSports: false},
		{Name: "tie", Priority: 1, Fields: titleOnly, Match: always, IsSports: true},
	}

	c := NewSportsClassifier(rules)

	got := c.Rules()
	want := []string{"early", "tie", "late"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("rule %d = %q, want %q", i, got[i].Name, name)
		}
	}

	v := c.Classify(Trade{Title: "anything"})
	if v.Rule != "early" || v.IsSports {
		t.Errorf("Classify = %+v, want early non-sports verdict", v)
	}
}

func TestRuleFieldsAreIsolated(t *testing.T) {
	c := NewSportsClassifier(DefaultSportsRules())

	// League prefixes only apply to the slug.
	if v := c.Classify(Trade{Title: "nfl-style headline about rates"}); v.Rule == "league_slug_prefix" {
		t.Errorf("slug rule matched title: %+v", v)
	}
	// Icon tokens only apply to the icon.
	if v := c.Classify(Trade{Title: "soccer mom voting bloc"}); v.Rule == "league_icon" {
		t.Errorf("icon rule matched title: %+v", v)
	}
}
