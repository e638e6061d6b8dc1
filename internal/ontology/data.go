package ontology

// defaultVocabulary is the built-in clinical vocabulary. It is data, not
// algorithm: deployments replace it wholesale via LoadFile without touching
// retrieval. Key phrases use "a/b" to register alternates.
var defaultVocabulary = map[string]map[string][]string{
	CategoryMetaphors: {
		"pressure/tightness": {"tension", "cephalalgia", "pressure sensation", "constriction"},
		"hollow/empty":       {"palpitations", "chest discomfort", "sensation of emptiness"},
		"burning":            {"dyspepsia", "gastroesophageal reflux", "burning sensation"},
		"sharp/stabbing":     {"acute pain", "sharp pain", "stabbing sensation"},
		"dull/aching":        {"chronic pain", "dull ache", "persistent discomfort"},
		"fluttering":         {"palpitations", "arrhythmia", "irregular heartbeat"},
		"snapping/breaking":  {"acute exacerbation", "sudden onset", "acute episode"},
		"weight/heaviness":   {"chest heaviness", "dyspnea", "respiratory distress"},
		"foggy/cloudy":       {"cognitive impairment", "mental fog", "confusion"},
		"racing":             {"tachycardia", "anxiety", "hyperarousal"},
	},
	CategoryEmotions: {
		"fear":         {"anxiety-related distress", "apprehension", "fearful affect"},
		"panic":        {"acute anxiety", "panic-like symptoms", "severe distress"},
		"sadness":      {"low mood", "depressed affect", "dysphoria"},
		"anger":        {"irritability", "agitation", "hostile affect"},
		"confusion":    {"cognitive disorientation", "mental confusion", "altered mental status"},
		"helplessness": {"sense of powerlessness", "vulnerability", "loss of control"},
	},
	CategoryRisk: {
		"chest pain":            {"high-risk indicator", "possible cardiac or pulmonary origin"},
		"shortness of breath":   {"high-risk indicator", "respiratory compromise"},
		"loss of consciousness": {"high-risk indicator", "syncope"},
		"severe pain":           {"high-risk indicator", "acute severe pain"},
		"trauma":                {"high-risk indicator", "recent injury"},
		"bleeding":              {"high-risk indicator", "hemorrhage"},
		"persistent symptoms":   {"moderate-risk indicator", "symptom persistence"},
		"worsening condition":   {"moderate-risk indicator", "symptom progression"},
		"functional impairment": {"moderate-risk indicator", "reduced function"},
		"mild symptoms":         {"low-risk indicator", "mild presentation"},
		"stable condition":      {"low-risk indicator", "clinical stability"},
		"chronic well-managed":  {"low-risk indicator", "managed chronic condition"},
	},
}
