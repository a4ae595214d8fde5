package session

import (
	"errors"
	"strings"
)

// ValidationError is a user input problem caught before any network call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// ValidateTeam checks the team field.
func ValidateTeam(team string) error {
	if strings.TrimSpace(team) == "" {
		return invalid("team", "please enter a team name")
	}
	return nil
}

// ValidateChat checks a send in the given mode. The member name is
// required only in Conversation mode.
func ValidateChat(mode Mode, team, member, text string) error {
	if mode != ModeConversation {
		return invalid("mode", "messages can only be sent in conversation mode")
	}
	if err := ValidateTeam(team); err != nil {
		return err
	}
	if strings.TrimSpace(member) == "" {
		return invalid("member", "please enter your (member) name")
	}
	if strings.TrimSpace(text) == "" {
		return invalid("message", "please enter a message")
	}
	return nil
}

// ValidateMember checks a member read.
func ValidateMember(team, member string) error {
	if err := ValidateTeam(team); err != nil {
		return err
	}
	if strings.TrimSpace(member) == "" {
		return invalid("member", "please enter your (member) name")
	}
	return nil
}

// SplitLines splits bulk text into trimmed, non-blank lines.
func SplitLines(raw string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ValidateBulk checks a bulk analysis and returns the lines to send.
func ValidateBulk(mode Mode, team, raw string) ([]string, error) {
	if mode != ModeAnalysis {
		return nil, invalid("mode", "bulk analysis is only available in analysis mode")
	}
	if err := ValidateTeam(team); err != nil {
		return nil, err
	}
	lines := SplitLines(raw)
	if len(lines) == 0 {
		return nil, invalid("bulk", "please provide at least one line of text for analysis")
	}
	return lines, nil
}

// ValidateFile checks a file upload request.
func ValidateFile(mode Mode, team, path string) error {
	if mode != ModeAnalysis {
		return invalid("mode", "file analysis is only available in analysis mode")
	}
	if err := ValidateTeam(team); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return invalid("file", "please choose a text file to upload")
	}
	return nil
}
