package httpapi

// Config carries the runtime settings for the ingestion API.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}
