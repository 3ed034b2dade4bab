package config

import "os"

// Server captures process-level configuration.
type Server struct {
	Addr            string
	PrimaryHostname string
	DatabaseURL     string
	StorageRoot     string
	JWTSigningKey   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MAILKEEP_ADDR")
	if addr == "" {
		addr = "127.0.0.1:10222"
	}

	hostname := os.Getenv("PRIMARY_HOSTNAME")
	if hostname == "" {
		hostname = "localhost"
	}

	storageRoot := os.Getenv("STORAGE_ROOT")
	if storageRoot == "" {
		storageRoot = "/home/user-data"
	}

	jwtSigningKey := os.Getenv("ADMIN_JWT_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            addr,
		PrimaryHostname: hostname,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StorageRoot:     storageRoot,
		JWTSigningKey:   jwtSigningKey,
	}
}
