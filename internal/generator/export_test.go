package generator

// NewGeminiTextFromModels builds a GeminiText over a fake models client.
var NewGeminiTextFromModels = newGeminiText
