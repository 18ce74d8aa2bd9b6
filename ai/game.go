package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/matt-wisdom/WhoDat/domain"
)

const judgePrompt = `You judge guesses in a game of "Who am I?".
Decide if the guess is semantically equivalent to, or refers to the same thing as, the secret identity.
Ignore minor spelling mistakes and variations (e.g. "Obama" == "Barack Obama").
Return a score between 0.0 and 1.0 where 1.0 is a match and 0.0 is completely different.
Return ONLY the number.`

const oraclePrompt = `You are the Game Master. Answer the question based ONLY on the context provided.
Rules:
1. Answer ONLY "Yes" or "No".
2. If the answer is unsure or maybe, default to "No".
3. Do not explain.`

// normalize lowercases s and drops everything but letters, digits and single
// spaces, so "The Eiffel-Tower!" and "the eiffel tower" compare equal.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// baseTitle drops a trailing disambiguation such as "Mercury (planet)".
func baseTitle(title string) string {
	if i := strings.Index(title, " ("); i > 0 && strings.HasSuffix(title, ")") {
		return title[:i]
	}
	return title
}

// Score rates how well guess names title. Exact matches are settled locally.
func (c *Client) Score(ctx context.Context, guess, title, text string) (float64, error) {
	g := normalize(guess)
	if g != "" && (g == normalize(title) || g == normalize(baseTitle(title))) {
		return 1, nil
	}

	user := fmt.Sprintf("Secret identity: %q\nGuess: %q", title, guess)
	if text != "" {
		user += "\nAbout the secret identity: " + truncate(text, 1500)
	}
	out, err := c.complete(ctx, judgePrompt, user, false)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty score", ErrUnexpectedResponse)
	}
	score, err := strconv.ParseFloat(strings.Trim(fields[0], ".,;"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: score %q: %w", ErrUnexpectedResponse, out, err)
	}
	return score, nil
}

// Answer replies "Yes" or "No" to a question about the text.
func (c *Client) Answer(ctx context.Context, question, text string) (string, error) {
	user := fmt.Sprintf("Context: %s\nQuestion: %s\n\nAnswer:", truncate(text, 4000), question)
	out, err := c.complete(ctx, oraclePrompt, user, false)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(out), "yes") {
		return "Yes", nil
	}
	return "No", nil
}

type movePayload struct {
	Action  string `json:"action"`
	Content string `json:"content"`
}

// NextMove asks the model, in the persona's voice, for a question or a guess
// about its own hidden identity.
func (c *Client) NextMove(ctx context.Context, persona domain.Persona, category string, history []string) (domain.Move, error) {
	state := "No history yet."
	if len(history) > 0 {
		state = "History:\n" + strings.Join(history, "\n")
	}

	user := fmt.Sprintf(`Current Game Context:
We are playing "Who am I?". The goal is to guess your own secret identity.
The secret identity belongs to the category: %s.

Game State:
%s

It is your turn.
You can either:
1. Ask a YES/NO question to narrow down the identity.
2. Make a GUESS if you are confident.

Output Format (JSON ONLY):
{"action": "QUESTION" or "GUESS", "content": "your question or guess here"}`, category, state)

	out, err := c.complete(ctx, persona.SystemPrompt, user, true)
	if err != nil {
		return domain.Move{}, err
	}

	var payload movePayload
	if err := json.Unmarshal([]byte(cleanJSONContent(out)), &payload); err != nil {
		return domain.Move{}, fmt.Errorf("%w: move %q: %w", ErrUnexpectedResponse, out, err)
	}

	action := domain.ActionQuestion
	if strings.EqualFold(strings.TrimSpace(payload.Action), string(domain.ActionGuess)) {
		action = domain.ActionGuess
	}
	return domain.Move{Action: action, Content: strings.TrimSpace(payload.Content)}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
