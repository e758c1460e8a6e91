package question

// Curated offline banks. Ids here are stems; every copy handed out gets a fresh suffix.

var englishErrorBank = []Question{
	{ID: "vault-eng-1", Text: "Identify the error: 'The reason why he was rejected (A) / was because he was too young (B) / for the job. (C) / No error (D)'", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 1, Explanation: "Remove 'because'. The reason ... was 'that' ..."},
	{ID: "vault-eng-2", Text: "Identify the error: 'Unless you do not give (A) / the keys of the safe (B) / you will be shot. (C) / No error (D)'", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 0, Explanation: "Remove 'do not'. Unless is already negative."},
	{ID: "vault-eng-3", Text: "Identify the error: 'He is one of the best mothers (A) / that has ever lived (B) / on this earth. (C) / No error (D)'", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 1, Explanation: "Replace 'has' with 'have'. The antecedent 'mothers' is plural."},
	{ID: "vault-eng-4", Text: "Identify the error: 'Scarcely had the function started (A) / than it began to rain (B) / heavily. (C) / No error (D)'", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 1, Explanation: "Replace 'than' with 'when'. Scarcely is followed by when."},
	{ID: "vault-eng-5", Text: "Identify the error: 'Neither of the two candidates (A) / have been selected (B) / for the post. (C) / No error (D)'", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 1, Explanation: "Replace 'have' with 'has'. Neither takes a singular verb."},
}

var polityBank = []Question{
	{ID: "vault-pol-1", Text: "Which of the following schedules of the Constitution of India contains provisions regarding anti-defection?", Options: []string{"Second Schedule", "Fifth Schedule", "Eighth Schedule", "Tenth Schedule"}, CorrectAnswer: 3, Explanation: "The Tenth Schedule was added by the 52nd Amendment Act, 1985."},
	{ID: "vault-pol-2", Text: "The concept of 'Basic Structure' of the Constitution was propounded by the Supreme Court in which case?", Options: []string{"Golaknath case", "Kesavananda Bharati case", "Minerva Mills case", "Maneka Gandhi case"}, CorrectAnswer: 1, Explanation: "Kesavananda Bharati (1973) established the Basic Structure doctrine."},
	{ID: "vault-pol-3", Text: "Who among the following appoints the Chairman of the Public Accounts Committee?", Options: []string{"President of India", "Prime Minister", "Speaker of Lok Sabha", "Chairman of Rajya Sabha"}, CorrectAnswer: 2, Explanation: "The Speaker of the Lok Sabha appoints the Chairman of the PAC."},
	{ID: "vault-pol-4", Text: "Which Article of the Constitution deals with the 'Pardoning Power' of the President?", Options: []string{"Article 72", "Article 74", "Article 61", "Article 123"}, CorrectAnswer: 0, Explanation: "Article 72 grants the President power to grant pardons and reprieves."},
	{ID: "vault-pol-5", Text: "A Money Bill can be introduced in the State Legislature only on the recommendation of:", Options: []string{"The Speaker", "The Chief Minister", "The Governor", "The Finance Minister"}, CorrectAnswer: 2, Explanation: "Prior recommendation of the Governor is required for Money Bills in states."},
}

var mathBank = []Question{
	{ID: "vault-math-1", Text: "If log 2 = 0.3010, then what is the number of digits in 2^64?", Options: []string{"18", "19", "20", "21"}, CorrectAnswer: 2, Explanation: "log(2^64) = 64 x 0.3010 = 19.264. The characteristic is 19, so the number has 20 digits."},
	{ID: "vault-math-2", Text: "The value of sin² 1° + sin² 5° + sin² 9° + ... + sin² 89° is:", Options: []string{"11.5", "11", "12", "12.5"}, CorrectAnswer: 0, Explanation: "Pair complementary angles: sin² x + sin² (90° - x) = 1."},
	{ID: "vault-math-3", Text: "A sphere of radius r is inscribed in a cube. The ratio of the volume of the cube to the volume of the sphere is:", Options: []string{"6 : π", "3 : π", "4 : 3", "2 : 1"}, CorrectAnswer: 0, Explanation: "Side a = 2r, so 8r³ : (4/3)πr³ = 6 : π."},
	{ID: "vault-math-4", Text: "If a work can be done by A in 10 days and B in 15 days, how long will they take to finish it together?", Options: []string{"5 days", "6 days", "8 days", "7 days"}, CorrectAnswer: 1, Explanation: "1/10 + 1/15 = 1/6, so 6 days."},
	{ID: "vault-math-5", Text: "What is the remainder when 2^31 is divided by 5?", Options: []string{"1", "2", "3", "4"}, CorrectAnswer: 2, Explanation: "Powers of 2 mod 5 cycle with period 4. 31 mod 4 = 3 and 2^3 = 8 leaves 3."},
}

var historyBank = []Question{
	{ID: "vault-hist-1", Text: "Who among the following was the founder of the 'Servants of India Society'?", Options: []string{"Bal Gangadhar Tilak", "Gopal Krishna Gokhale", "Lala Lajpat Rai", "Dadabhai Naoroji"}, CorrectAnswer: 1, Explanation: "Founded by Gopal Krishna Gokhale in 1905 in Pune."},
	{ID: "vault-hist-2", Text: "The 'Doctrine of Lapse' was introduced by:", Options: []string{"Lord Wellesley", "Lord Curzon", "Lord Dalhousie", "Lord Canning"}, CorrectAnswer: 2, Explanation: "Lord Dalhousie implemented the Doctrine of Lapse."},
	{ID: "vault-hist-3", Text: "Which Harappan site had a dockyard?", Options: []string{"Harappa", "Mohenjodaro", "Lothal", "Kalibangan"}, CorrectAnswer: 2, Explanation: "Lothal in Gujarat had a large dockyard."},
	{ID: "vault-hist-4", Text: "The 'Quit India Movement' was launched in which year?", Options: []string{"1940", "1941", "1942", "1943"}, CorrectAnswer: 2, Explanation: "Launched on August 8, 1942."},
	{ID: "vault-hist-5", Text: "Who was known as the 'Frontier Gandhi'?", Options: []string{"Maulana Azad", "Khan Abdul Ghaffar Khan", "Muhammad Ali Jinnah", "Liaquat Ali Khan"}, CorrectAnswer: 1, Explanation: "Khan Abdul Ghaffar Khan."},
}

var scienceBank = []Question{
	{ID: "vault-sci-1", Text: "Which one of the following is responsible for the blue colour of the sky?", Options: []string{"Reflection", "Refraction", "Scattering", "Dispersion"}, CorrectAnswer: 2, Explanation: "Rayleigh scattering of sunlight by atmospheric molecules."},
	{ID: "vault-sci-2", Text: "Which vitamin is essential for blood clotting?", Options: []string{"Vitamin A", "Vitamin B12", "Vitamin K", "Vitamin D"}, CorrectAnswer: 2, Explanation: "Vitamin K is needed to synthesise clotting factors."},
	{ID: "vault-sci-3", Text: "The pH value of human blood is approximately:", Options: []string{"6.4", "7.0", "7.4", "8.2"}, CorrectAnswer: 2, Explanation: "Blood is slightly alkaline, roughly 7.35 to 7.45."},
	{ID: "vault-sci-4", Text: "Which non-metal is liquid at room temperature?", Options: []string{"Mercury", "Bromine", "Chlorine", "Gallium"}, CorrectAnswer: 1, Explanation: "Bromine is the only non-metal that is liquid at room temperature."},
	{ID: "vault-sci-5", Text: "What is the unit of power of a lens?", Options: []string{"Dioptre", "Lumen", "Lux", "Candela"}, CorrectAnswer: 0, Explanation: "Dioptre (D)."},
}

var geographyBank = []Question{
	{ID: "vault-geo-1", Text: "Which of the following is the longest river of peninsular India?", Options: []string{"Krishna", "Godavari", "Kaveri", "Mahanadi"}, CorrectAnswer: 1, Explanation: "The Godavari flows about 1465 km and is called Dakshin Ganga."},
	{ID: "vault-geo-2", Text: "The Tropic of Cancer does NOT pass through which of the following states?", Options: []string{"Rajasthan", "Chhattisgarh", "Odisha", "Tripura"}, CorrectAnswer: 2, Explanation: "It crosses eight states; Odisha lies entirely south of it."},
	{ID: "vault-geo-3", Text: "Which pass connects Srinagar with Leh?", Options: []string{"Shipki La", "Nathu La", "Zoji La", "Bomdi La"}, CorrectAnswer: 2, Explanation: "Zoji La carries the Srinagar-Leh highway."},
	{ID: "vault-geo-4", Text: "Which is the highest peak of the Western Ghats?", Options: []string{"Anamudi", "Doddabetta", "Mahendragiri", "Kalsubai"}, CorrectAnswer: 0, Explanation: "Anamudi in Kerala rises to 2695 m."},
	{ID: "vault-geo-5", Text: "Which soil is best suited for cotton cultivation?", Options: []string{"Alluvial soil", "Laterite soil", "Red soil", "Black (regur) soil"}, CorrectAnswer: 3, Explanation: "Black soil retains moisture and is rich in lime and iron."},
}

// curatedTopics maps exact topic ids to a bank.
var curatedTopics = map[string][]Question{
	"spotting-errors":     englishErrorBank,
	"pol-making":          polityBank,
	"pol-preamble":        polityBank,
	"pol-rights":          polityBank,
	"pol-parl-sys":        polityBank,
	"number-system":       mathBank,
	"algebra":             mathBank,
	"trigonometry":        mathBank,
	"mod-freedom":         historyBank,
	"mod-gandhi":          historyBank,
	"ancient-prehistoric": historyBank,
	"mechanics":           scienceBank,
	"optics":              scienceBank,
	"cell-biology":        scienceBank,
	"physical-geography":  geographyBank,
	"indian-rivers":       geographyBank,
}

type keywordRule struct {
	markers []string
	bank    []Question
}

// categoryRules are checked in order; the first rule with a marker contained in the topic id wins.
var categoryRules = []keywordRule{
	{markers: []string{"polity", "pol-"}, bank: polityBank},
	{markers: []string{"hist", "ancient", "med-", "mod-"}, bank: historyBank},
	{markers: []string{"geo"}, bank: geographyBank},
	{markers: []string{"eco"}, bank: polityBank},
	{markers: []string{"math"}, bank: mathBank},
	{markers: []string{"eng", "grammar", "error"}, bank: englishErrorBank},
	{markers: []string{"sci", "phys", "chem", "bio"}, bank: scienceBank},
}

var proceduralStems = []string{
	"Analyze the significance of {topic} in the contemporary strategic landscape.",
	"Which of the following best defines the core principle of {topic}?",
	"Consider the following statements regarding {topic}: 1. It is fundamental to the system. 2. It has evolved significantly post-2000. Which is correct?",
	"The application of {topic} is most critical in which of the following sectors?",
	"Identify the incorrect statement regarding the historical evolution of {topic}.",
}
