package voice

// DefaultConfig returns the built-in five-language table with the two stock
// speakers Alice and Bob, voiced by ElevenLabs voice IDs. English is the
// default language and Alice the default speaker.
func DefaultConfig() Config {
	return Config{
		Languages: []Language{
			{Code: "en", Name: "English", Flag: "🇺🇸"},
			{Code: "es", Name: "Spanish", Flag: "🇪🇸"},
			{Code: "fr", Name: "French", Flag: "🇫🇷"},
			{Code: "de", Name: "German", Flag: "🇩🇪"},
			{Code: "it", Name: "Italian", Flag: "🇮🇹"},
		},
		Speakers: []Speaker{
			{
				Name: "Alice",
				Voices: map[string]string{
					"en": "Xb7hH8MSUJpSbSDYk0k2",
					"es": "pqHfZKP75CvOlQylNhV4",
					"fr": "N2lVS1w4EtoT3dr4eOWO",
					"de": "Xb7hH8MSUJpSbSDYk0k2",
					"it": "pqHfZKP75CvOlQylNhV4",
				},
			},
			{
				Name: "Bob",
				Voices: map[string]string{
					"en": "pqHfZKP75CvOlQylNhV4",
					"es": "N2lVS1w4EtoT3dr4eOWO",
					"fr": "Xb7hH8MSUJpSbSDYk0k2",
					"de": "pqHfZKP75CvOlQylNhV4",
					"it": "N2lVS1w4EtoT3dr4eOWO",
				},
			},
		},
		DefaultLanguage: "en",
		DefaultSpeaker:  "Alice",
	}
}

// Default returns a [Registry] built from [DefaultConfig]. It panics if the
// built-in table is invalid, which is a programming error.
func Default() *Registry {
	r, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}
