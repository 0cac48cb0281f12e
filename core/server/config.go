package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	// When empty the API is served without authentication.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitMB caps the size of an uploaded payroll file in megabytes.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"16"`
}

// BodyLimitBytes returns the upload size cap in bytes, falling back to the
// 16 MB default when the configured value is not positive.
func (c Config) BodyLimitBytes() int {
	mb := c.BodyLimitMB
	if mb <= 0 {
		mb = 16
	}
	return mb * 1024 * 1024
}
