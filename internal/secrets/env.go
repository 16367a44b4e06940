package secrets

import (
	"context"
	"os"
	"strings"

	"graphable/internal/domain"
)

// EnvProvider reads payloads from environment variables. The variable name
// is the secret name, upper-cased, with '-' and '.' turned into '_'. A
// non-empty VaultURL is used as a name prefix.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

var _ domain.SecretProvider = (*EnvProvider)(nil)

// NewEnvProvider creates an EnvProvider. A nil lookup uses os.LookupEnv.
func NewEnvProvider(lookup func(string) (string, bool)) *EnvProvider {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvProvider{lookup: lookup}
}

// GetSecret returns the variable's value.
func (p *EnvProvider) GetSecret(_ context.Context, ref domain.SecretReference) (string, error) {
	name := EnvVarName(ref)
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return "", domain.ErrNotFound("secret %q not found", ref.SecretName)
	}
	return v, nil
}

var envReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_")

// EnvVarName returns the variable consulted for ref.
func EnvVarName(ref domain.SecretReference) string {
	name := ref.SecretName
	if ref.VaultURL != "" {
		name = ref.VaultURL + "_" + name
	}
	return strings.ToUpper(envReplacer.Replace(name))
}
