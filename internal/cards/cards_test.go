package cards

import "testing"

func TestCardIdRoundTrip(t *testing.T) {
	for _, s := range Suits {
		for _, r := range Ranks {
			c := Card{Suit: s, Rank: r}
			parsed, err := ParseId(c.Id())
			if err != nil {
				t.Fatalf("ParseId(%q): %v", c.Id(), err)
			}
			if parsed != c {
				t.Fatalf("round trip mismatch: got %v want %v", parsed, c)
			}
		}
	}
}

func TestParseIdRejectsGarbage(t *testing.T) {
	cases := []string{"", "hearts", "hearts-Z", "bogus-A", "hearts_A"}
	for _, c := range cases {
		if _, err := ParseId(c); err == nil {
			t.Fatalf("ParseId(%q) should have failed", c)
		}
	}
}

func TestNewDeckHas52UniqueCards(t *testing.T) {
	deck := NewDeck()
	if len(deck) != 52 {
		t.Fatalf("expected 52 cards, got %d", len(deck))
	}
	seen := make(map[string]bool)
	for _, c := range deck {
		if seen[c.Id()] {
			t.Fatalf("duplicate card %s", c.Id())
		}
		seen[c.Id()] = true
	}
}

func TestBaseValue(t *testing.T) {
	cases := []struct {
		card Card
		want int
	}{
		{Card{Diamonds, Ten}, 2},
		{Card{Clubs, Two}, 1},
		{Card{Hearts, Ten}, 1},
		{Card{Spades, Jack}, 1},
		{Card{Clubs, Ace}, 1},
		{Card{Hearts, King}, 1},
		{Card{Hearts, Five}, 0},
		{Card{Spades, Nine}, 0},
	}
	for _, tc := range cases {
		if got := BaseValue(tc.card); got != tc.want {
			t.Errorf("BaseValue(%s) = %d, want %d", tc.card.Id(), got, tc.want)
		}
	}
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	d1 := NewDeck()
	d2 := NewDeck()
	Shuffle(d1, 42)
	Shuffle(d2, 42)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("shuffle with same seed diverged at index %d", i)
		}
	}
}
