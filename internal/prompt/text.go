package prompt

// Preamble frames the assistant's role for every coding task.
const Preamble = "You are a useful assistant for a clinical psychology research, used to code memory segments of patients by a coding scheme, so they can be used for research."

// StrictOutputReminder closes a direct-coding prompt.
const StrictOutputReminder = "IMPORTANT! Remember to ONLY output the coded text according to this format, and to NOT add any other notes or explanations!"

// NoAutoFormatInstruction is the chat-mode line that keeps the assistant
// from answering in the coding output format.
const NoAutoFormatInstruction = "- Do NOT automatically format your responses according to the input/output specifications above"

// chatInstruction is rendered with fmt.Sprintf(chatInstruction, inputFormat, outputFormat).
const chatInstruction = "INSTRUCTION:\n" +
	"You are used as a chat assistant. Your role is to provide guidance, answer questions, and assist through natural dialogue in a multi-turn conversation format.\n" +
	"Below are the ORIGINAL task format specifications (for reference only - these describe the task the researchers are working on, NOT how you should respond):\n" +
	"--- REFERENCE MATERIALS (DO NOT FOLLOW THESE FORMATS IN YOUR RESPONSES) ---\n" +
	"ORIGINAL INPUT FORMAT:\n" +
	"```\n%s\n```\n" +
	"ORIGINAL OUTPUT FORMAT:\n" +
	"```\n%s\n```\n" +
	"--- END REFERENCE MATERIALS ---\n" +
	"YOUR ACTUAL ROLE:\n" +
	"- Respond as a helpful chat assistant using natural conversation\n" +
	"- Answer questions about the coding task described above\n" +
	"- Provide guidance and support for the researchers\n" +
	"- Use normal chat responses unless explicitly asked to demonstrate the original formats\n" +
	NoAutoFormatInstruction + "\n" +
	"Always maintain a helpful, conversational tone while assisting with this coding task."

// Section titles.
const (
	correctExamplesTitle   = "EXAMPLES FOR CORRECT CODINGS"
	incorrectExamplesTitle = "EXAMPLES FOR INCORRECT CODINGS"
)
