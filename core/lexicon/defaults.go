package lexicon

// Default vocabularies for the built-in categories. These are deliberately
// small seed lists tuned for early-modern English translations; projects
// with other corpora should supply their own lexicon file.

var defaultDominance = []string{
	"command", "rule", "reign", "smite", "subdue", "destroy",
	"lord", "king", "obey", "servant", "master",
}

var defaultCompassion = []string{
	"love", "mercy", "forgive", "heal", "help", "comfort",
	"give", "shelter", "feed",
}

var defaultViolence = []string{
	"kill", "slew", "smite", "strike", "destroy", "blood",
	"war", "sword", "fire",
}

var defaultAgency = []string{
	"make", "build", "go", "come", "speak", "create",
	"give", "take", "rise", "walk",
}

// Default returns the built-in lexicon set: dominance, compassion,
// violence, and agency.
func Default() *Set {
	return &Set{
		Categories: []Category{
			{Name: "dominance", Terms: append([]string(nil), defaultDominance...)},
			{Name: "compassion", Terms: append([]string(nil), defaultCompassion...)},
			{Name: "violence", Terms: append([]string(nil), defaultViolence...)},
			{Name: "agency", Terms: append([]string(nil), defaultAgency...)},
		},
	}
}
