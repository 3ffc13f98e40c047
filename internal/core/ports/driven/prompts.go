package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptRAGAnswer grounds an answer in retrieved context.
	// The template expects two %s placeholders: context, then question.
	PromptRAGAnswer = "rag_answer"

	// PromptSessionTitle summarises the first exchange into a title.
	// The template expects one %s placeholder for the exchange content.
	PromptSessionTitle = "session_title"
)

// Section headers used by the default templates. Offline providers use them
// to find the context and question inside a rendered prompt.
const (
	PromptContextHeader  = "=== Context ==="
	PromptQuestionHeader = "=== Question ==="
	PromptAnswerHeader   = "=== Answer ==="
	PromptContentHeader  = "Conversation:"
	PromptTitleHeader    = "Title:"
)
