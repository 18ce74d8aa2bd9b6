package game

import (
	"fmt"
	"strings"

	"github.com/matt-wisdom/WhoDat/domain"
)

func ledgerEntry(name string, action domain.Action, content, result string) string {
	if action == domain.ActionGuess {
		return fmt.Sprintf("[%s] guessed: \"%s\" -> %s", name, content, result)
	}
	return fmt.Sprintf("[%s] asked: \"%s\" -> Answer: %s", name, content, result)
}

// filterLedger keeps the entries written for the given display name.
func filterLedger(entries []string, name string) []string {
	prefix := "[" + name + "]"
	own := []string{}
	for _, e := range entries {
		if strings.HasPrefix(e, prefix) {
			own = append(own, e)
		}
	}
	return own
}
