package resources

import (
	"fmt"
	"strings"
)

const (
	specURIPrefix = "specwright://session/"
	specURISuffix = "/spec"
)

// sessionIDFromURI extracts {id} from specwright://session/{id}/spec.
func sessionIDFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, specURIPrefix) || !strings.HasSuffix(uri, specURISuffix) ||
		len(uri) < len(specURIPrefix)+len(specURISuffix) {
		return "", fmt.Errorf("unsupported resource URI %q", uri)
	}
	id := uri[len(specURIPrefix) : len(uri)-len(specURISuffix)]
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("resource URI %q does not name a session", uri)
	}
	return id, nil
}
