package services

import "fmt"

// tamilFactsPrompt asks for 6–10 short Tamil tech facts, one per line, with
// no numbering. The parser still tolerates numbering when the model adds it.
const tamilFactsPrompt = `
நீங்கள் ஒரு தொழில்நுட்ப கல்வியாளர்.

6 முதல் 10 வரை குறுகிய தொழில்நுட்ப உண்மைகளை தமிழில் உருவாக்குங்கள்.

கட்டாய விதிகள்:
- ஒவ்வொரு உண்மையும் முழுமையான வாக்கியம் ஆக இருக்க வேண்டும்
- ஒவ்வொரு உண்மையும் 5–8 வார்த்தைகள்
- எளிய மற்றும் சரியான தமிழ்
- எண்கள், புள்ளிகள், குறிகள் வேண்டாம்
- ஒவ்வொரு உண்மையும் புதிய வரியில் மட்டும்

உதாரணம்:
முதல் கணினி எலி மரத்தால் செய்யப்பட்டது
இணையம் முதலில் ராணுவ பயன்பாடு
மொபைல் CPU மனிதனை விட வேகமானது

இப்போது 6–10 புதிய உண்மைகள் மட்டும்:
`

const genericFactsPrompt = `You are a technology educator.

Write 6 to 10 short technology facts in the language with ISO 639-1 code "%s".

Rules:
- Each fact is one complete sentence
- Each fact is 5-8 words
- Simple, correct language
- No numbers, bullets or other markers
- One fact per line, nothing else

Now write 6-10 new facts only:`

// FactsPrompt returns the fact-generation prompt for a language code.
func FactsPrompt(language string) string {
	if language == "" || language == "ta" {
		return tamilFactsPrompt
	}
	return fmt.Sprintf(genericFactsPrompt, language)
}

// BackgroundPrompt describes the still behind the overlay. It must not
// contain text, since the overlay carries all of it.
const BackgroundPrompt = `Vertical (9:16) tech background:
- Futuristic digital circuits
- Blue and purple neon lights
- Dark background
- No text`
