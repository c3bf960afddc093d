package domain

// AuthProvider identifies a federated identity provider.
type AuthProvider string

const (
	AuthProviderApple  AuthProvider = "apple"
	AuthProviderGoogle AuthProvider = "google"
)
