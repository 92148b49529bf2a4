package session

// PromptSet carries the fixed conversation texts for one deployment. The
// handler treats it as data: swap the set to change the assistant's persona
// without touching session logic.
type PromptSet struct {
	// Greeting is sent to the client in the connected control message.
	Greeting string
	// Persona, DescriptionTemplate and ResponseStyle seed the upstream
	// conversation as system instructions, in this order.
	Persona             string
	DescriptionTemplate string
	ResponseStyle       string
}

// DefaultPromptSet is the gallery guide persona shipped with the backend.
func DefaultPromptSet() PromptSet {
	return PromptSet{
		Greeting: "Hello! I am the gallery guide. Ask me about the sculptures around you, or just start talking.",
		Persona: "You are a friendly and knowledgeable guide in a gallery of Gothic sculpture casts. " +
			"You help visitors explore the collection, answer questions about the sculptures and their history, " +
			"and keep the conversation warm and welcoming.",
		DescriptionTemplate: "When you describe a sculpture, mention its name, when it was made, where the original " +
			"stands and who made it, if known. Work any provided dataset facts into your answer naturally instead " +
			"of reading them out as a list.",
		ResponseStyle: "Answer briefly, in two or three spoken sentences, as if talking to a visitor standing next " +
			"to you. Do not use markdown, bullet points or headings. If you do not know something, say so plainly.",
	}
}
