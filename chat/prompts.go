package chat

// systemPrompt is the fixed preamble describing the assistant's role. It
// is sent with every turn and never stored in the session history.
const systemPrompt = `You are a helpful assistant for software requirements and design analysis. You help users understand coverage analysis results: which requirements are addressed by the design, which are missing, and what to do about the gaps. Answer questions about requirements, design items, similarity scores, and remediation priorities. Be concrete and reference the analysis data when it is available.`

// analysisContextHeader introduces the optional analysis block injected
// after the system preamble when the caller supplies recent results.
const analysisContextHeader = "Current analysis results for reference:"
