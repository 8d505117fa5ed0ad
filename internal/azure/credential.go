// Package azure builds the credentials shared by the blob and queue
// clients.
package azure

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// well-known Azurite development account
const (
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// IsLocal reports whether serviceURL points at an emulator (plain http).
func IsLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http://")
}

func AzuriteCredentials() (string, string) {
	return azuriteAccountName, azuriteAccountKey
}

func DefaultCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}
