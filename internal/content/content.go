package content

import (
	"fmt"
	"net/url"
)

type Kind int

const (
	NoParameter Kind = iota
	NotFound
	Found
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Found:
		return "found"
	default:
		return "no_parameter"
	}
}

type Result struct {
	Kind   Kind
	Key    string
	FileID string
}

// Resolve maps a /start parameter to a catalog entry. Keys are matched exactly.
func Resolve(param string, catalog map[string]string) Result {
	if param == "" {
		return Result{Kind: NoParameter}
	}
	fileID, ok := catalog[param]
	if !ok {
		return Result{Kind: NotFound, Key: param}
	}
	return Result{Kind: Found, Key: param, FileID: fileID}
}

// DeepLink builds the t.me link that opens the bot with key as the start parameter.
func DeepLink(botUsername, key string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, url.QueryEscape(key))
}
