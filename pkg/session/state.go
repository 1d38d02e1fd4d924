package session

// State identifies where a user is in the workflow graph.
type State string

const (
	StateAwaitingLanguage  State = "awaiting_language"
	StateMainMenu          State = "main_menu"
	StateAIChat            State = "ai_chat"
	StateQRCode            State = "qr_code"
	StateDocumentAssembly  State = "document_assembly"
	StateTextToSpeech      State = "text_to_speech"
	StateSpreadsheetExport State = "spreadsheet_export"
	StateImageCaption      State = "image_caption"
	StateImageCaptionText  State = "image_caption_text" // photo held, waiting for caption text
	StateWeather           State = "weather"
)

var allStates = []State{
	StateAwaitingLanguage,
	StateMainMenu,
	StateAIChat,
	StateQRCode,
	StateDocumentAssembly,
	StateTextToSpeech,
	StateSpreadsheetExport,
	StateImageCaption,
	StateImageCaptionText,
	StateWeather,
}

// States returns every valid state in declaration order.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Valid reports whether s is a member of the state set.
func (s State) Valid() bool {
	for _, known := range allStates {
		if s == known {
			return true
		}
	}
	return false
}

// IsWorkflow reports whether s belongs to a feature workflow (anything past the main menu).
func (s State) IsWorkflow() bool {
	return s.Valid() && s != StateAwaitingLanguage && s != StateMainMenu
}

// Workflow maps sub-states back to the workflow that owns them.
func (s State) Workflow() State {
	if s == StateImageCaptionText {
		return StateImageCaption
	}
	return s
}

func (s State) String() string {
	return string(s)
}
