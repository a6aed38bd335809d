package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyAuthMethod  = "auth_method"
)

// Authentication methods recorded on the request
const (
	AuthMethodBearer = "bearer"
	AuthMethodEmail  = "email"
)
