package analysis

import "regexp"

// DefaultPowerWords are terms that show up again and again in high-performing
// gaming titles. Order matters: it breaks ties between equally frequent words.
var DefaultPowerWords = []string{
	"hardest",
	"impossible",
	"insane",
	"crazy",
	"challenge",
	"every",
	"giant",
	"world",
	"record",
	"best",
	"worst",
	"secret",
	"hidden",
	"never",
	"always",
	"only",
	"first",
	"last",
	"new",
	"real",
	"fake",
	"ultimate",
	"legendary",
	"epic",
	"overpowered",
	"broken",
	"banned",
	"deleted",
	"exposed",
	"destroying",
	"beating",
	"winning",
	"losing",
	"surviving",
	"100",
	"1000",
	"solo",
	"noob",
	"pro",
	"god",
	"hacked",
	"glitch",
	"op",
	"ranked",
	"undefeated",
	"speedrun",
	"hardcore",
}

// TitleFormat is a structural title idiom and the expression that detects it.
type TitleFormat struct {
	Label   string
	Pattern *regexp.Regexp
}

// DefaultTitleFormats is checked in order; earlier entries win ties.
var DefaultTitleFormats = []TitleFormat{
	{"I Did/Spent/Played X", regexp.MustCompile(`(?i)i (did|spent|played|tried|survived|beat)`)},
	{"X Days Challenge", regexp.MustCompile(`(?i)\d+ days?`)},
	{"X Hours Challenge", regexp.MustCompile(`(?i)\d+ hours?`)},
	{"X Kills", regexp.MustCompile(`(?i)\d+ kills?`)},
	{"X Wins", regexp.MustCompile(`(?i)\d+ wins?`)},
	{"X but Every Y", regexp.MustCompile(`(?i)but (every|each|all)`)},
	{"X vs Y", regexp.MustCompile(`(?i)vs\.?`)},
	{"*(Asterisk/Emphasis) Title", regexp.MustCompile(`\*.*\*`)},
	{"Title (Parenthetical)", regexp.MustCompile(`\(.*\)`)},
	{"How To/How I", regexp.MustCompile(`(?i)how (to|i)`)},
	{"World's First/Best/Worst", regexp.MustCompile(`(?i)world('s)? (first|best|worst|hardest)`)},
	{"Only Using X", regexp.MustCompile(`(?i)only (using|with|a)`)},
	{"Challenge Format", regexp.MustCompile(`(?i)challenge`)},
	{"Pro vs Noob", regexp.MustCompile(`(?i)pro vs (noob|beginner)`)},
	{"Contains Number", regexp.MustCompile(`\d+`)},
	{"Article Start (The/A)", regexp.MustCompile(`(?i)^(the|a) `)},
	{"Reaction Video", regexp.MustCompile(`(?i)react(ing|ed|ion)`)},
	{"Tier List", regexp.MustCompile(`(?i)tier list`)},
	{"Best X in Y", regexp.MustCompile(`(?i)best .+ in`)},
	{"I Got X", regexp.MustCompile(`(?i)i got`)},
}
