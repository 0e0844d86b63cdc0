package analyzer

// lexicon maps lowercased words to a valence in roughly [-4, 4].
var lexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "awesome": 3.1,
	"wonderful": 2.7, "fantastic": 2.6, "love": 3.2, "loved": 2.9, "like": 1.5,
	"liked": 1.8, "enjoy": 2.2, "enjoyed": 2.3, "happy": 2.7, "glad": 2.0,
	"nice": 1.8, "best": 3.2, "better": 1.9, "beautiful": 2.9, "brilliant": 2.8,
	"pleasant": 2.3, "positive": 2.3, "success": 2.7, "successful": 2.8, "win": 2.8,
	"helpful": 1.9, "useful": 1.9, "clear": 1.6, "easy": 1.9, "fun": 2.3,
	"impressive": 2.3, "perfect": 2.7, "recommend": 1.5, "satisfied": 1.8, "thanks": 1.9,
	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5, "worst": -3.1,
	"worse": -2.1, "hate": -2.7, "hated": -3.2, "dislike": -1.6, "sad": -2.1,
	"angry": -2.3, "poor": -2.1, "negative": -2.7, "fail": -2.5, "failed": -2.3,
	"failure": -2.3, "problem": -1.7, "problems": -1.7, "broken": -2.1, "useless": -1.8,
	"boring": -1.3, "confusing": -1.3, "difficult": -1.5, "hard": -0.4, "disappointing": -2.2,
	"disappointed": -1.9, "annoying": -1.7, "ugly": -2.3, "wrong": -2.1, "error": -1.7,
	"slow": -0.9, "unfortunately": -1.4, "pain": -2.3, "fear": -2.2, "lose": -1.3,
}

// boosters intensify the following sentiment word.
var boosters = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.293, "so": 0.293, "incredibly": 0.293,
	"absolutely": 0.293, "totally": 0.293, "quite": 0.2, "slightly": -0.293, "somewhat": -0.293,
}

// negations flip the polarity of a sentiment word within three tokens.
var negations = toSet([]string{
	"not", "no", "never", "none", "nobody", "nothing", "neither", "nor", "without", "cannot",
})
