package constants

import "time"

// Context and session keys
const (
	ContextKeyPrincipal = "principal"
	ContextKeyUser      = "user"
	SessionKeyPrincipal = "principal"
	SessionCookieName   = "crm_session"
)

// Communication list limits
const (
	DefaultCommunicationLimit = 50
	MaxCommunicationLimit     = 100
	RecentCommunicationsForAI = 5
)

// Cache windows used by query helpers
const (
	DefaultStaleTime = 30 * time.Second
	DefaultGCTime    = 5 * time.Minute
)

// TagDelimiter separates tags in free-form client input
const TagDelimiter = ","
