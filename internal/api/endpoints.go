package api

// Login bridge endpoints
const (
	BridgeService = "fastlogin.v1.LoginBridge"

	BridgeLogin = "/fastlogin.v1.LoginBridge/Login"
)

// Health endpoints
const (
	HealthCheck = "/grpc.health.v1.Health/Check"
	HealthWatch = "/grpc.health.v1.Health/Watch"
)

// PublicEndpoints defines endpoints that don't require authentication
var PublicEndpoints = map[string]bool{
	HealthCheck: true,
	HealthWatch: true,
	BridgeLogin: false,
}
