package gateway

import (
	"net/http"
	"strings"

	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/pkg/utils"
)

// classify maps a gateway answer onto the error taxonomy. Conflicts are
// reported as 409 by newer releases and as 403 "already in use" by older ones.
func classify(op, name string, status int, body string, tree any) error {
	if status >= 200 && status < 300 {
		return nil
	}

	lower := strings.ToLower(body)
	switch {
	case status >= 500:
		return &pkgError.RemoteUnavailableError{Op: op, Err: &pkgError.ProviderError{Op: op, Status: status, Message: errorMessage(tree, body)}}
	case status == http.StatusConflict,
		strings.Contains(lower, "already in use"), strings.Contains(lower, "already exists"):
		return pkgError.InstanceConflictError(name)
	case status == http.StatusNotFound,
		strings.Contains(lower, "does not exist"):
		return pkgError.InstanceNotFoundError(name)
	}
	return &pkgError.ProviderError{Op: op, Status: status, Message: errorMessage(tree, body)}
}

func errorMessage(tree any, body string) string {
	if m, ok := tree.(map[string]any); ok {
		if resp, ok := m["response"].(map[string]any); ok {
			if list, ok := resp["message"].([]any); ok && len(list) > 0 {
				parts := make([]string, 0, len(list))
				for _, item := range list {
					if s, ok := item.(string); ok {
						parts = append(parts, s)
					}
				}
				if len(parts) > 0 {
					return strings.Join(parts, "; ")
				}
			}
		}
	}
	if msg := utils.PickString(tree, "message", "error"); msg != "" {
		return msg
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}
