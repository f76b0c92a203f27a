package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	requiredMessage = "This field is required."
	maxTitleLen     = 200
	maxBodyLen      = 100000
	maxMessageLen   = 10000
)

// PostFields validates the client-writable fields of a post and returns
// field -> messages; the result is empty when the input is valid.
func PostFields(title, body string) map[string][]string {
	errs := make(map[string][]string)
	if strings.TrimSpace(title) == "" {
		errs["title"] = append(errs["title"], requiredMessage)
	} else if n := utf8.RuneCountInString(title); n > maxTitleLen {
		errs["title"] = append(errs["title"], fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLen))
	}
	if strings.TrimSpace(body) == "" {
		errs["body"] = append(errs["body"], requiredMessage)
	} else if utf8.RuneCountInString(body) > maxBodyLen {
		errs["body"] = append(errs["body"], fmt.Sprintf("Ensure this field has no more than %d characters.", maxBodyLen))
	}
	return errs
}

// CommentFields validates the client-writable fields of a comment.
func CommentFields(message string) map[string][]string {
	errs := make(map[string][]string)
	if strings.TrimSpace(message) == "" {
		errs["message"] = append(errs["message"], requiredMessage)
	} else if utf8.RuneCountInString(message) > maxMessageLen {
		errs["message"] = append(errs["message"], fmt.Sprintf("Ensure this field has no more than %d characters.", maxMessageLen))
	}
	return errs
}
