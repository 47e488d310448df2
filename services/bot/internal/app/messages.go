package app

// User-facing reply text. Kept in one place so flows stay readable.
const (
	msgGenericFailure = "Sorry, something went wrong on our side. Please try that again."

	msgNoDesignYet  = "There's no design to work from yet. Create one first, for example: \"design a ring with my diamond\"."
	msgNoDiamondYet = "I need your diamond's details first. Please upload your GIA certificate (PDF or photo) and I'll take it from there."

	msgAskForCertificate = "Please send your GIA certificate as a PDF or a clear photo."
	msgAskDesignIdea     = "Describe the jewelry you'd like me to design. For example: \"a vintage halo ring in rose gold\"."
	msgAskSearchCriteria = "Tell me what you're looking for. For example: \"round diamonds, 1 to 2 carat, under $10,000\"."
	msgAskQuestion       = "What would you like to know about diamonds or jewelry?"

	msgListingAskPrice   = "Let's list your diamond for sale. 💎\n\nWhat's your asking price? Type a number, or type \"contact\" to show \"Contact for Price\"."
	msgListingAskContact = "Got it. How should buyers reach you? Send a phone number or email."
	msgListingAskMedia   = "Almost done. Send one or more photos of the diamond, then type \"done\"."
	msgListingNeedImages = "I need at least one photo before the listing can go up. Send a photo, then type \"done\"."
	msgListingMediaNudge = "Send a photo of the diamond, or type \"done\" when you've sent them all."
	msgListingSubmitted  = "Your listing has been submitted for review. You'll hear from us as soon as it's approved. ✅"

	msgCertificateRejected = "I couldn't find a report number on that document, so it doesn't look like a GIA certificate. Please send a clearer copy."
	msgCertificateFailed   = "I couldn't read that document. Please try a clearer PDF or photo of the certificate."

	msgVoiceUnsupported = "Voice messages aren't supported right now. Please type your request."
	msgVoiceFailed      = "I couldn't make out that voice message. Please type your request instead."

	msgSearchNoResults = "No diamonds matched your search. Try widening the carat or price range."

	msgGreeting = "Welcome! I'm your diamond assistant. 💎 I can read GIA certificates, design jewelry around your stone, search diamonds for sale, and help you sell your own."
)
