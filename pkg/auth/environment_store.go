package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	TokenEnv  = "CLICKUP_TOKEN"
	TeamIDEnv = "TEAM_ID"
)

// EnvironmentStore is a read-only CredentialStore over CLICKUP_TOKEN and TEAM_ID.
// It answers for any profile so exported variables always work.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Name identifies the store
func (e *EnvironmentStore) Name() string {
	return "environment"
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from the environment
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile: profile,
		Token:   token,
		TeamID:  os.Getenv(TeamIDEnv),
		// Stored profiles win when listing
		LastModified: time.Time{},
	}, nil
}

// List returns the default profile if the token variable is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve(DefaultProfile)
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if the token variable is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv(TokenEnv) != ""
}
