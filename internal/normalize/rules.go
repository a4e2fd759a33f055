package normalize

import (
	"regexp"
	"sort"
	"strings"

	"hargalist/internal"
	"hargalist/internal/util"
)

type vocabEntry struct {
	English  string
	Category internal.Category
}

// vocab maps Indonesian produce terms to canonical English head nouns.
// Multi-word phrases are matched before single words. Extensible: new terms
// only need an entry here.
var vocab = map[string]vocabEntry{
	"bawang merah":  {"Shallot", internal.CategoryVegetables},
	"bawang putih":  {"Garlic", internal.CategoryVegetables},
	"bawang bombay": {"Onion", internal.CategoryVegetables},
	"minyak goreng": {"Oil Cooking", internal.CategoryOils},
	"air mineral":   {"Water Mineral", internal.CategoryBeverages},
	"santan":        {"Milk Coconut", internal.CategoryDairy},
	"daging sapi":   {"Beef", internal.CategoryMeat},
	"daging ayam":   {"Chicken", internal.CategoryMeat},

	"wortel":   {"Carrot", internal.CategoryVegetables},
	"kentang":  {"Potato", internal.CategoryVegetables},
	"tomat":    {"Tomato", internal.CategoryVegetables},
	"timun":    {"Cucumber", internal.CategoryVegetables},
	"terong":   {"Eggplant", internal.CategoryVegetables},
	"bayam":    {"Spinach", internal.CategoryVegetables},
	"kangkung": {"Water Spinach", internal.CategoryVegetables},
	"kol":      {"Cabbage", internal.CategoryVegetables},
	"kubis":    {"Cabbage", internal.CategoryVegetables},
	"brokoli":  {"Broccoli", internal.CategoryVegetables},
	"jamur":    {"Mushroom", internal.CategoryVegetables},

	"apel":     {"Apple", internal.CategoryFruits},
	"jeruk":    {"Orange", internal.CategoryFruits},
	"pisang":   {"Banana", internal.CategoryFruits},
	"mangga":   {"Mango", internal.CategoryFruits},
	"semangka": {"Watermelon", internal.CategoryFruits},
	"nanas":    {"Pineapple", internal.CategoryFruits},
	"alpukat":  {"Avocado", internal.CategoryFruits},
	"anggur":   {"Grape", internal.CategoryFruits},

	"ayam":   {"Chicken", internal.CategoryMeat},
	"sapi":   {"Beef", internal.CategoryMeat},
	"kambing": {"Goat", internal.CategoryMeat},
	"bebek":  {"Duck", internal.CategoryMeat},
	"daging": {"Meat", internal.CategoryMeat},

	"ikan":   {"Fish", internal.CategorySeafood},
	"udang":  {"Shrimp", internal.CategorySeafood},
	"cumi":   {"Squid", internal.CategorySeafood},
	"kepiting": {"Crab", internal.CategorySeafood},
	"salmon": {"Salmon", internal.CategorySeafood},
	"tuna":   {"Tuna", internal.CategorySeafood},

	"susu":    {"Milk", internal.CategoryDairy},
	"keju":    {"Cheese", internal.CategoryDairy},
	"mentega": {"Butter", internal.CategoryDairy},
	"telur":   {"Egg", internal.CategoryDairy},
	"yogurt":  {"Yogurt", internal.CategoryDairy},
	"krim":    {"Cream", internal.CategoryDairy},

	"cabai":  {"Chili", internal.CategorySpices},
	"cabe":   {"Chili", internal.CategorySpices},
	"jahe":   {"Ginger", internal.CategorySpices},
	"kunyit": {"Turmeric", internal.CategorySpices},
	"lada":   {"Pepper", internal.CategorySpices},
	"merica": {"Pepper", internal.CategorySpices},
	"ketumbar": {"Coriander", internal.CategorySpices},
	"kemiri": {"Candlenut", internal.CategorySpices},

	"beras":  {"Rice", internal.CategoryGrains},
	"tepung": {"Flour", internal.CategoryGrains},
	"jagung": {"Corn", internal.CategoryGrains},
	"mie":    {"Noodle", internal.CategoryGrains},

	"roti": {"Bread", internal.CategoryBakery},
	"kue":  {"Cake", internal.CategoryBakery},

	"teh":  {"Tea", internal.CategoryBeverages},
	"kopi": {"Coffee", internal.CategoryBeverages},
	"sirup": {"Syrup", internal.CategoryBeverages},

	"minyak": {"Oil", internal.CategoryOils},

	"gula":  {"Sugar", internal.CategorySweeteners},
	"madu":  {"Honey", internal.CategorySweeteners},

	"garam":  {"Salt", internal.CategoryCondiments},
	"kecap":  {"Soy Sauce", internal.CategoryCondiments},
	"saus":   {"Sauce", internal.CategoryCondiments},
	"sambal": {"Sambal", internal.CategoryCondiments},
	"cuka":   {"Vinegar", internal.CategoryCondiments},

	"tisu":     {"Tissue", internal.CategoryDisposables},
	"plastik":  {"Plastic", internal.CategoryDisposables},
	"aluminium foil": {"Foil Aluminium", internal.CategoryDisposables},
}

// englishHeads recognizes already-English head nouns so "Mozzarella Cheese"
// can be reordered to "Cheese Mozzarella".
var englishHeads = map[string]internal.Category{
	"carrot": internal.CategoryVegetables, "potato": internal.CategoryVegetables,
	"tomato": internal.CategoryVegetables, "cabbage": internal.CategoryVegetables,
	"spinach": internal.CategoryVegetables, "onion": internal.CategoryVegetables,
	"garlic": internal.CategoryVegetables, "shallot": internal.CategoryVegetables,
	"mushroom": internal.CategoryVegetables, "broccoli": internal.CategoryVegetables,
	"apple": internal.CategoryFruits, "orange": internal.CategoryFruits,
	"banana": internal.CategoryFruits, "mango": internal.CategoryFruits,
	"avocado": internal.CategoryFruits, "pineapple": internal.CategoryFruits,
	"chicken": internal.CategoryMeat, "beef": internal.CategoryMeat,
	"meat": internal.CategoryMeat, "duck": internal.CategoryMeat,
	"lamb": internal.CategoryMeat, "goat": internal.CategoryMeat,
	"fish": internal.CategorySeafood, "shrimp": internal.CategorySeafood,
	"squid": internal.CategorySeafood, "crab": internal.CategorySeafood,
	"salmon": internal.CategorySeafood, "tuna": internal.CategorySeafood,
	"milk": internal.CategoryDairy, "cheese": internal.CategoryDairy,
	"butter": internal.CategoryDairy, "egg": internal.CategoryDairy,
	"yogurt": internal.CategoryDairy, "cream": internal.CategoryDairy,
	"chili": internal.CategorySpices, "ginger": internal.CategorySpices,
	"pepper": internal.CategorySpices, "turmeric": internal.CategorySpices,
	"rice": internal.CategoryGrains, "flour": internal.CategoryGrains,
	"corn": internal.CategoryGrains, "noodle": internal.CategoryGrains,
	"bread": internal.CategoryBakery, "cake": internal.CategoryBakery,
	"tea": internal.CategoryBeverages, "coffee": internal.CategoryBeverages,
	"water": internal.CategoryBeverages, "juice": internal.CategoryBeverages,
	"oil": internal.CategoryOils, "sugar": internal.CategorySweeteners,
	"honey": internal.CategorySweeteners, "salt": internal.CategoryCondiments,
	"sauce": internal.CategoryCondiments, "vinegar": internal.CategoryCondiments,
	"tissue": internal.CategoryDisposables,
}

// noiseTokens are brand and grade markers stripped from names. Packaging
// words are handled by the unit table instead.
var noiseTokens = map[string]struct{}{
	"segar": {}, "fresh": {}, "premium": {}, "super": {}, "lokal": {},
	"import": {}, "grade": {}, "merk": {}, "merek": {}, "cap": {},
	"brand": {}, "kualitas": {}, "quality": {}, "murah": {}, "promo": {},
}

var unitTable = map[string]string{
	"kg": "kg", "kilo": "kg", "kilogram": "kg",
	"g": "g", "gr": "g", "gram": "g",
	"mg": "mg",
	"l": "l", "lt": "l", "ltr": "l", "liter": "l", "litre": "l",
	"ml": "ml",
	"pcs": "pcs", "pc": "pcs", "biji": "pcs", "buah": "pcs", "bh": "pcs",
	"butir": "pcs", "ekor": "pcs",
	"ikat": "bunch", "bunch": "bunch",
	"lembar": "sheet", "sheet": "sheet",
	"pak": "pack", "pack": "pack", "bungkus": "pack", "sachet": "pack",
	"dus": "box", "karton": "box", "box": "box", "krat": "box",
	"botol": "bottle", "bottle": "bottle", "btl": "bottle",
	"kaleng": "can", "can": "can",
	"karung": "sack", "sack": "sack", "sak": "sack",
	"lusin": "dozen", "dozen": "dozen",
}

var numericUnit = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*([a-zA-Z]+)\.?$`)

// UnitRule is the outcome of the deterministic unit table.
type UnitRule struct {
	StdUnit   string
	Quantity  *float64
	Thousands bool
	Known     bool
}

// ResolveUnit canonicalizes a raw unit token. Numeric-prefixed tokens like
// "250ml" split into quantity and unit; thousands markers ("k", "rb") are
// price-scale suffixes, never measurement units.
func ResolveUnit(raw string) UnitRule {
	token := strings.ToLower(util.NormalizeSpaces(raw))
	token = strings.TrimSuffix(token, ".")
	if token == "" {
		return UnitRule{}
	}
	if util.IsThousandsMarker(token) {
		return UnitRule{Thousands: true, Known: true}
	}
	if std, ok := unitTable[token]; ok {
		return UnitRule{StdUnit: std, Known: true}
	}
	if m := numericUnit.FindStringSubmatch(token); m != nil {
		if std, ok := unitTable[m[2]]; ok {
			if qty, okNum := util.ParsePrice(m[1]); okNum {
				return UnitRule{StdUnit: std, Quantity: &qty, Known: true}
			}
		}
	}
	return UnitRule{}
}

// NameRule is the outcome of the deterministic vocabulary pass.
type NameRule struct {
	StdName  string
	Category internal.Category
	Resolved bool
}

// ResolveName translates a raw name when the head noun is known, producing
// "<Head> <Descriptor>" order ("apel fuji" -> "Apple Fuji", "mozzarella
// cheese" -> "Cheese Mozzarella"). Unknown heads stay unresolved for the
// LLM fallback.
func ResolveName(raw string) NameRule {
	cleaned := stripNoise(util.NormalizeKey(raw))
	if cleaned == "" {
		return NameRule{}
	}

	// Longest-phrase vocabulary match anywhere in the name.
	for _, phrase := range vocabPhrases {
		if idx := phraseIndex(cleaned, phrase); idx >= 0 {
			entry := vocab[phrase]
			rest := util.NormalizeSpaces(cleaned[:idx] + " " + cleaned[idx+len(phrase):])
			name := entry.English
			if rest != "" {
				name = name + " " + util.TitleWords(rest)
			}
			return NameRule{StdName: name, Category: entry.Category, Resolved: true}
		}
	}

	// Already-English names: put the head noun first.
	words := strings.Fields(cleaned)
	for i, w := range words {
		if cat, ok := englishHeads[w]; ok {
			rest := append(append([]string{}, words[:i]...), words[i+1:]...)
			name := util.TitleWords(w)
			if len(rest) > 0 {
				name = name + " " + util.TitleWords(strings.Join(rest, " "))
			}
			return NameRule{StdName: name, Category: cat, Resolved: true}
		}
	}

	return NameRule{}
}

// GuessCategory maps a free-form category string onto the closed enum;
// anything unrecognized is "other".
func GuessCategory(raw string) internal.Category {
	s := util.NormalizeKey(raw)
	for _, c := range internal.Categories {
		if s == string(c) {
			return c
		}
	}
	switch s {
	case "sayur", "sayuran", "vegetable":
		return internal.CategoryVegetables
	case "buah", "fruit":
		return internal.CategoryFruits
	case "bumbu", "rempah", "spice":
		return internal.CategorySpices
	case "minuman", "drink", "beverage":
		return internal.CategoryBeverages
	case "daging", "meat":
		return internal.CategoryMeat
	case "seafood", "ikan":
		return internal.CategorySeafood
	}
	return internal.CategoryOther
}

func stripNoise(name string) string {
	words := strings.Fields(name)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := noiseTokens[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func phraseIndex(haystack, phrase string) int {
	idx := strings.Index(haystack, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || haystack[idx-1] == ' '
		end := idx + len(phrase)
		afterOK := end == len(haystack) || haystack[end] == ' '
		if beforeOK && afterOK {
			return idx
		}
		next := strings.Index(haystack[idx+1:], phrase)
		if next < 0 {
			return -1
		}
		idx = idx + 1 + next
	}
	return -1
}

// vocabPhrases lists vocabulary keys longest first so "bawang merah" wins
// over "bawang".
var vocabPhrases = sortedPhrases()

func sortedPhrases() []string {
	out := make([]string, 0, len(vocab))
	for k := range vocab {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
