package helpers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptForConfirmation asks a yes/no question with a default of no.
func PromptForConfirmation(out io.Writer, reader *bufio.Reader, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	response, _ := reader.ReadString('\n')
	return isAffirmativeResponse(response)
}

// isAffirmativeResponse checks if a response is affirmative (y or yes)
func isAffirmativeResponse(response string) bool {
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
