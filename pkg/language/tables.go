package language

import "unicode"

// scriptRule maps a Unicode script to the language it most likely encodes.
// Order breaks ties between scripts with equal rune counts.
type scriptRule struct {
	lang  string
	table *unicode.RangeTable
}

var scriptRules = []scriptRule{
	{"hi", unicode.Devanagari},
	{"ta", unicode.Tamil},
	{"te", unicode.Telugu},
	{"bn", unicode.Bengali},
	{"gu", unicode.Gujarati},
	{"kn", unicode.Kannada},
	{"ml", unicode.Malayalam},
	{"pa", unicode.Gurmukhi},
	{"or", unicode.Oriya},
	{"ja", unicode.Hiragana},
	{"ja", unicode.Katakana},
	{"ko", unicode.Hangul},
	{"zh", unicode.Han},
	{"ru", unicode.Cyrillic},
	{"el", unicode.Greek},
	{"he", unicode.Hebrew},
	{"th", unicode.Thai},
	{"ar", unicode.Arabic},
}

// urduLetters are Arabic-script letters used by Urdu but not by Arabic.
var urduLetters = []rune{'ٹ', 'ڈ', 'ڑ', 'ں', 'ے', 'ہ', 'ھ', 'گ', 'پ', 'چ'}

// knownArtists maps normalized artist names to their language.
var knownArtists = map[string]string{
	"arijit singh":          "hi",
	"shreya ghoshal":        "hi",
	"lata mangeshkar":       "hi",
	"kishore kumar":         "hi",
	"ar rahman":             "hi",
	"sonu nigam":            "hi",
	"atif aslam":            "ur",
	"nusrat fateh ali khan": "ur",
	"rahat fateh ali khan":  "ur",
	"abida parveen":         "ur",
	"yuvan shankar raja":    "ta",
	"anirudh ravichander":   "ta",
	"anirudh":               "ta",
	"sid sriram":            "ta",
	"ilaiyaraaja":           "ta",
	"harris jayaraj":        "ta",
	"devi sri prasad":       "te",
	"ss thaman":             "te",
	"thaman s":              "te",
	"mm keeravani":          "te",
	"diljit dosanjh":        "pa",
	"sidhu moose wala":      "pa",
	"ap dhillon":            "pa",
	"karan aujla":           "pa",
	"falguni pathak":        "gu",
	"kirtidan gadhvi":       "gu",
	"anupam roy":            "bn",
	"ajay atul":             "mr",
	"zubeen garg":           "as",
	"shakira":               "es",
	"enrique iglesias":      "es",
	"bad bunny":             "es",
	"rosalia":               "es",
	"celine dion":           "fr",
	"edith piaf":            "fr",
	"stromae":               "fr",
	"andrea bocelli":        "it",
	"eros ramazzotti":       "it",
	"rammstein":             "de",
	"helene fischer":        "de",
	"bts":                   "ko",
	"blackpink":             "ko",
	"iu":                    "ko",
	"yui":                   "ja",
	"hikaru utada":          "ja",
	"jay chou":              "zh",
	"anitta":                "pt",
	"caetano veloso":        "pt",
	"fairuz":                "ar",
	"amr diab":              "ar",
	"tarkan":                "tr",
	"alla pugacheva":        "ru",
}

// genreRule maps a substring of a catalog genre tag to a language. More
// specific tags come first.
type genreRule struct {
	keyword string
	lang    string
}

var genreRules = []genreRule{
	{"tamil", "ta"},
	{"kollywood", "ta"},
	{"telugu", "te"},
	{"tollywood", "te"},
	{"bengali", "bn"},
	{"bangla", "bn"},
	{"punjabi", "pa"},
	{"bhangra", "pa"},
	{"gujarati", "gu"},
	{"garba", "gu"},
	{"marathi", "mr"},
	{"kannada", "kn"},
	{"sandalwood", "kn"},
	{"malayalam", "ml"},
	{"mollywood", "ml"},
	{"odia", "or"},
	{"assamese", "as"},
	{"urdu", "ur"},
	{"pakistani", "ur"},
	{"qawwali", "ur"},
	{"ghazal", "ur"},
	{"bollywood", "hi"},
	{"filmi", "hi"},
	{"hindi", "hi"},
	{"desi", "hi"},
	{"indian", "hi"},
	{"k-pop", "ko"},
	{"k-indie", "ko"},
	{"korean", "ko"},
	{"j-pop", "ja"},
	{"j-rock", "ja"},
	{"japanese", "ja"},
	{"anime", "ja"},
	{"c-pop", "zh"},
	{"mandopop", "zh"},
	{"cantopop", "zh"},
	{"chinese", "zh"},
	{"chanson", "fr"},
	{"french", "fr"},
	{"reggaeton", "es"},
	{"spanish", "es"},
	{"latin", "es"},
	{"schlager", "de"},
	{"german", "de"},
	{"italian", "it"},
	{"russian", "ru"},
	{"brazilian", "pt"},
	{"sertanejo", "pt"},
	{"mpb", "pt"},
	{"arabic", "ar"},
	{"turkish", "tr"},
}

// patternSet combines topical vocabulary and surname clusters for one
// language. Topical hits weigh more than surnames. A match needs two
// topical hits or one topical hit backed by a surname.
type patternSet struct {
	lang    string
	topical []string
	names   []string
}

const (
	topicalWeight    = 2
	nameWeight       = 1
	keywordThreshold = 3
)

var patternSets = []patternSet{
	{"hi",
		[]string{"bollywood", "hindi", "ishq", "pyaar", "pyar", "mohabbat", "zindagi", "dil", "tera", "mera", "tujhe", "sajna", "yaara", "jaana", "dilbar"},
		[]string{"kumar", "sharma", "kapoor", "mangeshkar", "ghoshal", "nigam", "bhatt", "malik", "chauhan", "kakkar"}},
	{"ta",
		[]string{"tamil", "kollywood", "kadhal", "kadhale", "anbe", "penne", "nenjame", "thalaivar", "kannamma", "machi"},
		[]string{"raja", "anirudh", "ravichander", "sriram", "jayaraj", "ilaiyaraaja", "yuvan", "dhanush", "vijay", "harris"}},
	{"te",
		[]string{"telugu", "tollywood", "prema", "manasu", "cheli", "nuvvu", "priyathama", "bangaram"},
		[]string{"prasad", "thaman", "keeravani", "chitra", "balasubrahmanyam", "mangli"}},
	{"pa",
		[]string{"punjabi", "bhangra", "jatt", "gabru", "kudi", "mutiyaar", "pind", "sardar"},
		[]string{"singh", "dosanjh", "sandhu", "dhillon", "gill", "sidhu", "grewal", "aujla", "randhawa"}},
	{"bn",
		[]string{"bengali", "bangla", "bhalobasha", "tumi", "rabindra", "sangeet", "gaan"},
		[]string{"chatterjee", "banerjee", "mukherjee", "ganguly", "bose", "roy"}},
	{"gu",
		[]string{"gujarati", "garba", "dandiya", "raas", "navratri"},
		[]string{"patel", "shah", "pathak", "desai", "mehta", "gadhvi"}},
	{"kn",
		[]string{"kannada", "sandalwood", "preethi", "olave", "huduga"},
		[]string{"gowda", "shetty", "hegde", "rao", "arjun janya"}},
	{"ml",
		[]string{"malayalam", "mollywood", "pranayam", "snehame"},
		[]string{"nair", "menon", "pillai", "kurup", "yesudas", "vineeth"}},
	{"mr",
		[]string{"marathi", "lavani", "koligeet", "mazha", "tuzha", "zingaat"},
		[]string{"deshpande", "kulkarni", "patil", "gokhale", "apte", "atul"}},
	{"ur",
		[]string{"urdu", "ghazal", "qawwali", "sufi", "mehfil", "khuda"},
		[]string{"khan", "ali", "hussain", "fateh", "nusrat", "abida", "parveen", "aslam"}},
	{"es",
		[]string{"amor", "corazon", "vida", "noche", "quiero", "cancion", "reggaeton", "bachata", "salsa", "fiesta", "contigo"},
		[]string{"garcia", "rodriguez", "martinez", "lopez", "gonzalez", "hernandez", "perez", "sanchez"}},
	{"fr",
		[]string{"amour", "chanson", "coeur", "toujours", "jamais", "bonjour", "rien", "nuit"},
		[]string{"dubois", "bernard", "lefebvre", "moreau", "laurent", "girard", "rousseau"}},
	{"de",
		[]string{"liebe", "herz", "nacht", "leben", "ich", "schlager", "sehnsucht", "immer"},
		[]string{"muller", "schmidt", "schneider", "fischer", "weber", "wagner", "becker"}},
	{"it",
		[]string{"amore", "cuore", "notte", "ciao", "canzone", "sempre", "ancora"},
		[]string{"rossi", "russo", "ferrari", "esposito", "bianchi", "romano", "ricci"}},
	{"pt",
		[]string{"saudade", "coracao", "samba", "bossa", "forro", "sertanejo", "voce", "saudades"},
		[]string{"silva", "santos", "oliveira", "souza", "pereira", "costa"}},
	{"ko",
		[]string{"saranghae", "oppa", "hanguk", "seoul"},
		[]string{"kim", "lee", "park", "choi", "jung", "kang"}},
	{"ja",
		[]string{"aishiteru", "kimi", "sakura", "kokoro", "yume"},
		[]string{"tanaka", "suzuki", "takahashi", "watanabe", "yamamoto", "nakamura"}},
	{"ru",
		[]string{"lyubov", "moskva", "dusha", "privet"},
		[]string{"ivanov", "smirnov", "petrov", "volkov", "sokolov"}},
	{"zh",
		[]string{"mandopop", "cantopop", "wo ai ni", "beijing"},
		[]string{"wang", "zhang", "liu", "chen", "yang", "huang", "zhou"}},
	{"ar",
		[]string{"habibi", "hayati", "albi", "yalla", "inta"},
		[]string{"mohamed", "ahmed", "abdel", "hassan", "diab"}},
}

// marketLanguages maps ISO territory codes to their default language.
var marketLanguages = map[string]string{
	"US": "en", "GB": "en", "CA": "en", "AU": "en", "NZ": "en", "IE": "en",
	"ES": "es", "MX": "es", "AR": "es", "CO": "es", "CL": "es", "PE": "es",
	"FR": "fr", "BE": "fr", "CH": "de",
	"DE": "de", "AT": "de",
	"IT": "it",
	"BR": "pt", "PT": "pt",
	"JP": "ja",
	"KR": "ko",
	"CN": "zh", "HK": "zh", "TW": "zh",
	"RU": "ru",
	"IN": "hi",
	"PK": "ur",
	"BD": "bn",
	"LK": "ta", "SG": "en", "MY": "en",
	"TR": "tr",
	"SA": "ar", "AE": "ar", "EG": "ar",
	"IL": "he",
	"GR": "el",
	"NL": "nl",
	"SE": "sv", "NO": "no", "DK": "da", "FI": "fi",
	"PL": "pl", "CZ": "cs", "HU": "hu",
}

// multilingualMarkets are territories where the market language is a weak
// guess and a caller supplied hint takes over.
var multilingualMarkets = map[string]bool{
	"IN": true, "PK": true, "LK": true, "SG": true, "MY": true,
	"CA": true, "CH": true, "BE": true,
}

// regions groups languages into coarse geographic regions.
var regions = map[string]string{
	"hi": "south-asia", "ta": "south-asia", "te": "south-asia", "bn": "south-asia",
	"gu": "south-asia", "kn": "south-asia", "ml": "south-asia", "pa": "south-asia",
	"mr": "south-asia", "ur": "south-asia", "or": "south-asia", "as": "south-asia",
	"ko": "east-asia", "ja": "east-asia", "zh": "east-asia", "th": "east-asia",
	"es": "latin", "pt": "latin",
	"fr": "europe", "de": "europe", "it": "europe", "ru": "europe", "nl": "europe",
	"pl": "europe", "cs": "europe", "hu": "europe", "el": "europe",
	"ar": "middle-east", "tr": "middle-east", "he": "middle-east",
	"en": "anglo",
	"sv": "nordic", "no": "nordic", "da": "nordic", "fi": "nordic",
}

// Names lists the display name of every language the engine can target.
var Names = map[string]string{
	"en": "English", "hi": "Hindi", "ta": "Tamil", "te": "Telugu", "bn": "Bengali",
	"gu": "Gujarati", "kn": "Kannada", "ml": "Malayalam", "pa": "Punjabi", "mr": "Marathi",
	"ur": "Urdu", "or": "Odia", "as": "Assamese", "es": "Spanish", "fr": "French",
	"de": "German", "it": "Italian", "pt": "Portuguese", "ja": "Japanese", "ko": "Korean",
	"zh": "Chinese", "ru": "Russian", "ar": "Arabic", "tr": "Turkish",
}

// SearchPlan describes the targeted search strategy for a language the
// recommendation endpoint serves poorly.
type SearchPlan struct {
	// Groups of curated search terms. Groups are rotated randomly.
	Groups [][]string
	// Markets that plausibly carry the language's catalog.
	Markets []string
	// Underground terms used to top up a thin candidate pool with less
	// popular tracks.
	Underground []string
}

var searchPlans = map[string]SearchPlan{
	"hi": {
		Groups: [][]string{
			{"bollywood hits", "hindi songs", "arijit singh"},
			{"hindi indie", "hindi lofi", "desi hip hop"},
			{"old hindi songs", "kishore kumar", "lata mangeshkar"},
			{"hindi romantic", "hindi sad songs", "sufi hindi"},
		},
		Markets: []string{"IN"},
	},
	"ta": {
		Groups: [][]string{
			{"tamil hits", "kollywood songs", "anirudh"},
			{"tamil melody", "ilaiyaraaja", "tamil 90s"},
			{"tamil indie", "tamil hip hop", "tamil independent"},
			{"yuvan shankar raja", "harris jayaraj", "sid sriram"},
		},
		Markets: []string{"IN", "LK", "SG", "MY"},
	},
	"te": {
		Groups: [][]string{
			{"telugu hits", "tollywood songs", "devi sri prasad"},
			{"telugu melody", "ss thaman", "keeravani"},
			{"telugu indie", "telugu folk", "telugu rap"},
		},
		Markets: []string{"IN"},
	},
	"bn": {
		Groups: [][]string{
			{"bengali songs", "bangla gaan", "rabindra sangeet"},
			{"bangla band", "bengali indie", "bangla rock"},
			{"bengali film songs", "anupam roy", "bengali folk"},
		},
		Markets: []string{"IN", "BD"},
	},
	"gu": {
		Groups: [][]string{
			{"gujarati songs", "garba", "dandiya"},
			{"gujarati folk", "falguni pathak", "kirtidan gadhvi"},
		},
		Markets: []string{"IN"},
	},
	"kn": {
		Groups: [][]string{
			{"kannada songs", "sandalwood hits", "kannada melody"},
			{"kannada rap", "kannada indie", "kannada folk"},
		},
		Markets: []string{"IN"},
	},
	"ml": {
		Groups: [][]string{
			{"malayalam songs", "mollywood hits", "malayalam melody"},
			{"malayalam indie", "malayalam rap", "malayalam folk"},
		},
		Markets: []string{"IN"},
	},
	"pa": {
		Groups: [][]string{
			{"punjabi hits", "bhangra", "diljit dosanjh"},
			{"punjabi pop", "sidhu moose wala", "ap dhillon"},
			{"punjabi folk", "punjabi sufi", "punjabi indie"},
		},
		Markets: []string{"IN", "CA", "GB"},
	},
	"mr": {
		Groups: [][]string{
			{"marathi songs", "marathi hits", "lavani"},
			{"marathi indie", "marathi folk", "ajay atul"},
		},
		Markets: []string{"IN"},
	},
	"ur": {
		Groups: [][]string{
			{"urdu songs", "ghazal", "qawwali"},
			{"coke studio pakistan", "pakistani pop", "nusrat fateh ali khan"},
		},
		Markets: []string{"PK", "IN"},
	},
	"or": {
		Groups: [][]string{
			{"odia songs", "odia hits", "ollywood"},
			{"odia folk", "sambalpuri"},
		},
		Markets: []string{"IN"},
	},
	"as": {
		Groups: [][]string{
			{"assamese songs", "bihu", "zubeen garg"},
			{"assamese folk", "assamese modern"},
		},
		Markets: []string{"IN"},
	},
}

// undergroundSuffixes build the top-up terms from a language's display name.
var undergroundSuffixes = []string{"indie", "independent", "acoustic", "rap", "folk"}
