package frontdeskService

import (
	"fmt"
	"frontdesk/internal/entity"
	"strconv"
	"strings"
	"unicode"
)

const (
	GenerationErrorReply  = "I apologize, I'm having trouble processing your request. Let me connect you with a human supervisor."
	EmptyGenerationReply  = "I apologize, I need to connect you with a supervisor for this question."
	EscalationFailedReply = "I'm sorry, I'm having trouble reaching our team right now. Please call back in a few minutes and we'll be glad to help."
)

const (
	escalationMaxTokens       = 10
	escalationTemperature     = 0.3
	disambiguationMaxTokens   = 10
	disambiguationTemperature = 0.3
	generationMaxTokens       = 150
	generationTemperature     = 0.7
)

const escalationRubric = `Escalate to human if:
- Question is about specific pricing, contracts, or custom services
- Question requires access to private customer data
- Question is complex and requires expert knowledge
- Question is about complaints or sensitive issues

Do NOT escalate if:
- Question is about general information (hours, location, contact)
- Question can be answered with common knowledge
- Question is a simple greeting or small talk

Reply with only "ESCALATE" or "ANSWER"`

func escalationPrompt(question string, recent []entity.Turn) string {
	var sb strings.Builder
	sb.WriteString("You are an AI receptionist. Determine if this question requires human supervisor assistance.\n\n")
	fmt.Fprintf(&sb, "Question: \"%s\"\n\n", question)
	if len(recent) > 0 {
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(FormatContext(recent))
		sb.WriteString("\n\n")
	}
	sb.WriteString(escalationRubric)
	return sb.String()
}

func disambiguationPrompt(question string, candidates []entity.KnowledgeEntry) string {
	pairs := make([]string, 0, len(candidates))
	for i, c := range candidates {
		pairs = append(pairs, fmt.Sprintf("%d. Q: %s\n   A: %s", i+1, c.Question, c.Answer))
	}

	return fmt.Sprintf(`Given the user question: "%s"

Which of the following Q&A pairs best answers this question? Reply with only the number (1-%d) or "NONE" if none are relevant.

%s`, question, len(candidates), strings.Join(pairs, "\n\n"))
}

func generationSystemPrompt(companyName string) string {
	return fmt.Sprintf(`You are a friendly AI receptionist for %s, a company providing AI-powered receptionist services.

Be helpful, professional, and concise. Keep responses under 50 words for voice calls.
If you don't know something specific, politely say so and offer to connect them with a human supervisor.`, companyName)
}

// Deflection is the reply spoken when a question is handed to a supervisor.
func Deflection(customerName string) string {
	greeting := strings.TrimSpace(customerName)
	if greeting == "" {
		greeting = "there"
	}
	return fmt.Sprintf("Thank you for your question, %s. I don't have that specific information right now, but I've sent your question to our team. We'll text you the answer shortly. Is there anything else I can help you with?", greeting)
}

// FormatContext renders turns as "speaker: text" lines.
func FormatContext(turns []entity.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Speaker, t.Text))
	}
	return strings.Join(lines, "\n")
}

func normalizeReply(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimFunc(reply, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.ToUpper(reply)
}

// parseEscalationReply reports the decision and whether the reply was one of
// the two allowed words.
func parseEscalationReply(reply string) (escalate bool, ok bool) {
	switch normalizeReply(reply) {
	case "ESCALATE":
		return true, true
	case "ANSWER":
		return false, true
	default:
		return true, false
	}
}

// parseDisambiguationReply maps a reply to a zero-based candidate index. A
// leading number is accepted ("2. Q: ..." selects 2).
func parseDisambiguationReply(reply string, n int) (index int, none bool, ok bool) {
	normalized := normalizeReply(reply)
	if normalized == "NONE" {
		return -1, true, true
	}

	end := 0
	for end < len(normalized) && normalized[end] >= '0' && normalized[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false, false
	}

	num, err := strconv.Atoi(normalized[:end])
	if err != nil || num < 1 || num > n {
		return 0, false, false
	}
	return num - 1, false, true
}
