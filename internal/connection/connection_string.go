package connection

import (
	"fmt"
	"strings"
)

// AzureConnectionString holds the fields of an Azure storage connection string that
// the quickstart reads or writes.
type AzureConnectionString struct {
	Protocol       string
	AccountName    string
	AccountKey     string
	BlobEndpoint   string
	EndpointSuffix string
}

// BuildAzureConnectionString returns the connection descriptor for an account name and
// key. A non-empty blobEndpoint (for example an Azurite URL) replaces the public endpoint
// and switches the protocol to the endpoint's scheme.
func BuildAzureConnectionString(accountName, accountKey, blobEndpoint string) (string, error) {
	if accountName == "" || accountKey == "" {
		return "", fmt.Errorf("access key and/or secret key not set")
	}

	protocol := "https"
	if strings.HasPrefix(blobEndpoint, "http://") {
		protocol = "http"
	}

	parts := []string{
		"DefaultEndpointsProtocol=" + protocol,
		"AccountName=" + accountName,
		"AccountKey=" + accountKey,
	}
	if blobEndpoint != "" {
		parts = append(parts, "BlobEndpoint="+blobEndpoint)
	}
	return strings.Join(parts, ";") + ";", nil
}

// ParseAzureConnectionString splits a connection string into its known fields.
// Unknown keys are ignored; AccountName is required.
func ParseAzureConnectionString(connStr string) (AzureConnectionString, error) {
	var cs AzureConnectionString
	for _, part := range strings.Split(connStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return AzureConnectionString{}, fmt.Errorf("malformed connection string segment %q", part)
		}
		switch strings.ToLower(key) {
		case "defaultendpointsprotocol":
			cs.Protocol = value
		case "accountname":
			cs.AccountName = value
		case "accountkey":
			cs.AccountKey = value
		case "blobendpoint":
			cs.BlobEndpoint = value
		case "endpointsuffix":
			cs.EndpointSuffix = value
		}
	}
	if cs.AccountName == "" {
		return AzureConnectionString{}, fmt.Errorf("connection string has no AccountName")
	}
	return cs, nil
}
