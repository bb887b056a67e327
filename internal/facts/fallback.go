package facts

// Fallback is the built-in Tamil tech fact list used to pad short or failed
// generations. Order matters: padding always takes from the front.
var Fallback = []string{
	"முதல் கணினி எலி மரத்தால் செய்யப்பட்டது",
	"இணையம் முதலில் ராணுவ பயன்பாடு",
	"மொபைல் CPU மனிதனை விட வேகமானது",
	"AI மனிதனை விட வேகமாக கற்கிறது",
	"தரவு தான் புதிய எரிபொருள்",
	"மின்னஞ்சல் முதலில் 1971இல் பயன்படுத்தப்பட்டது",
	"சாட்ஜிபிடி மொழிகளை புரிந்து கொள்ளும்",
	"உலகின் முதல் இணையதளம் இன்னும் இயங்குகிறது",
	"கம்ப்யூட்டர் வைரஸ் 1986இல் உருவானது",
	"மேகம் தரவுகளை சேமிக்க பயன்படுகிறது",
}
